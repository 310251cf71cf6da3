package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/store-extractor/internal/common"
)

var fenceRe = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")

// SanitizeAndParse recovers a JSON object from free-form model output. It keeps
// the innermost fenced block if any, slices from the first '{' to the last '}'
// and decodes the result. Every JSON number becomes a decimal.Decimal.
func SanitizeAndParse(raw string) (map[string]any, error) {
	s := strings.TrimSpace(unfence(raw))

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, unparsable("no JSON object found", raw)
	}
	s = s[start : end+1]

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, common.NewAppError(common.KindUnparsableResponse, "invalid JSON: "+Truncate(raw, 300), err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, unparsable("trailing data after JSON object", raw)
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, unparsable(fmt.Sprintf("expected JSON object, got %T", v), raw)
	}
	out, err := toDecimals(obj)
	if err != nil {
		return nil, common.NewAppError(common.KindUnparsableResponse, "invalid number: "+Truncate(raw, 300), err)
	}
	return out.(map[string]any), nil
}

func unparsable(reason, raw string) error {
	return common.Errorf(common.KindUnparsableResponse, "%s: %s", reason, Truncate(raw, 300))
}

// unfence descends into fenced code blocks, preferring one that holds an
// object, until no fence remains.
func unfence(s string) string {
	for {
		blocks := fenceRe.FindAllStringSubmatch(s, -1)
		if len(blocks) == 0 {
			return s
		}
		inner := blocks[0][1]
		for _, b := range blocks {
			if strings.Contains(b[1], "{") {
				inner = b[1]
				break
			}
		}
		s = inner
	}
}

// toDecimals replaces json.Number values with decimal.Decimal, recursively.
func toDecimals(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		return decimal.NewFromString(t.String())
	case map[string]any:
		for k, e := range t {
			c, err := toDecimals(e)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			t[k] = c
		}
		return t, nil
	case []any:
		for i, e := range t {
			c, err := toDecimals(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			t[i] = c
		}
		return t, nil
	default:
		return v, nil
	}
}
