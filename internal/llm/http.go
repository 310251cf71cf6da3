package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/store-extractor/internal/common"
)

// StatusError is a non-2xx response from a model backend.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status: %d: %s", e.StatusCode, Truncate(string(e.Body), 200))
}

// SendJSON posts body as JSON to url with optional headers and returns the raw
// response body. It does not assume any provider; callers decide the URL and
// headers. A non-2xx status is returned as *StatusError.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{}
	}

	reqID := uuid.New().String()
	start := time.Now()
	attrs := append([]any{"req_id", reqID}, common.LogAttrs(ctx)...)

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("llm.http.encode_error", append(attrs, "error", err)...)
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		logger.Error("llm.http.build_request_error", append(attrs, "error", err)...)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Info("llm.http.request", append(attrs, "url", redactURL(url), "content_length", len(bs))...)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", append(attrs, "error", err, "elapsed_ms", time.Since(start).Milliseconds())...)
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("llm.http.read_error", append(attrs, "error", err, "elapsed_ms", time.Since(start).Milliseconds())...)
		return nil, resp.StatusCode, err
	}

	logger.Info("llm.http.response", append(attrs,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)...)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: raw}
	}
	return raw, resp.StatusCode, nil
}

// Classify maps a transport or status failure from provider onto the error
// taxonomy. Errors that already carry a kind pass through untouched.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500 {
			return common.NewAppError(common.KindTransientNetworkFailure, provider+" unavailable", err)
		}
		return common.NewAppError(common.KindProviderError, provider+" rejected request", err)
	}
	if IsTransient(err) {
		return common.NewAppError(common.KindTransientNetworkFailure, provider+" call failed", err)
	}
	return common.NewAppError(common.KindProviderError, provider+" call failed", err)
}

// IsTransient reports whether err is a timeout, a cancellation, or a failed
// or dropped connection. A request that never left the client (bad URL or
// scheme) and an unknown host are not transient.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
