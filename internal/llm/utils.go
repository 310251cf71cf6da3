package llm

import (
	"encoding/base64"
	"net/url"
)

// DataURL encodes b as a base64 data URL of the given MIME type.
func DataURL(b []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// Truncate shortens s to at most n bytes for logs and error messages.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…(truncated)"
}

// redactURL drops query parameters, which may carry API keys.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid-url"
	}
	u.RawQuery = ""
	return u.String()
}
