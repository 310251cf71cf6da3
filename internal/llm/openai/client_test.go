package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chatResponse(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return b
}

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(Config{
		APIKey:  "sk-test",
		BaseURL: url,
		Timeout: timeout,
		Retry:   llm.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	}, quietLogger())
}

func TestExtractFromImage_RequestShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write(chatResponse("```json\n{\"merchant_name\":\"Kirana\",\"total_amount\":120.50}\n```"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, time.Second)
	out, err := c.ExtractFromImage(context.Background(), []byte{0xFF, 0xD8}, "Extract receipt.", "image/jpeg")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if d, ok := out["total_amount"].(decimal.Decimal); !ok || !d.Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("total_amount = %v", out["total_amount"])
	}

	if got["model"] != "gpt-4o-mini" || got["max_tokens"] != float64(2000) {
		t.Fatalf("model/max_tokens = %v/%v", got["model"], got["max_tokens"])
	}
	msgs := got["messages"].([]any)
	if sys := msgs[0].(map[string]any)["content"]; sys != imageSystemMessage {
		t.Fatalf("system message = %v", sys)
	}
	parts := msgs[1].(map[string]any)["content"].([]any)
	text := parts[0].(map[string]any)["text"].(string)
	if !strings.HasSuffix(text, llm.JSONInstruction) {
		t.Fatalf("prompt missing JSON instruction: %q", text)
	}
	url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("image url = %q", url)
	}
}

func TestExtractFromText_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(chatResponse(`{"account_number":"XX99","transactions":[]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL, time.Second).ExtractFromText(context.Background(), "statement text", "Extract.")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if out["account_number"] != "XX99" || calls.Load() != 3 {
		t.Fatalf("out=%v calls=%d", out, calls.Load())
	}
}

func TestExtractFromImage_TimeoutExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-r.Context().Done()
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 10*time.Millisecond).ExtractFromImage(context.Background(), []byte("x"), "p", "image/png")
	if !common.IsKind(err, common.KindTransientNetworkFailure) {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestExtract_UnparsableAndClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Authorization"), "bad") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write(chatResponse("Sorry, I cannot read this document."))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, time.Second).ExtractFromText(context.Background(), "t", "p")
	if !common.IsKind(err, common.KindUnparsableResponse) {
		t.Fatalf("err = %v", err)
	}

	c := newTestClient(srv.URL, time.Second)
	c.cfg.APIKey = "bad"
	_, err = c.ExtractFromText(context.Background(), "t", "p")
	if !common.IsKind(err, common.KindProviderError) {
		t.Fatalf("err = %v", err)
	}
}

func TestAvailable(t *testing.T) {
	if NewClient(Config{}, nil).Available() {
		t.Fatal("client without key should be unavailable")
	}
}
