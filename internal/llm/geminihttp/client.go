// Package geminihttp calls the Gemini generateContent REST endpoint directly,
// for deployments that do not ship the Vertex AI SDK. It only reads images.
package geminihttp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
)

// promptTemplate wraps every catalog prompt sent through this backend.
const promptTemplate = "You are reading a photographed or scanned business document from a small retail store.\n\n%s\n\n" + llm.JSONInstruction

type Config struct {
	APIKey      string
	BaseURL     string // default https://generativelanguage.googleapis.com
	Model       string // default gemini-1.5-flash
	Temperature float32
	Timeout     time.Duration
	Retry       llm.RetryPolicy
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

var _ llm.ImageExtractor = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: &http.Client{}, logger: logger}
}

func (c *Client) Name() string { return "geminihttp" }

func (c *Client) Available() bool { return c.cfg.APIKey != "" }

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content      `json:"contents"`
	GenerationConfig map[string]any `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) ExtractFromImage(ctx context.Context, image []byte, prompt, mimeType string) (map[string]any, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.extract.start", append(common.LogAttrs(ctx),
		"req_id", rid,
		"provider", c.Name(),
		"model", c.cfg.Model,
		"mode", "image",
		"input_bytes", len(image),
	)...)

	body := generateRequest{
		Contents: []content{{Parts: []part{
			{Text: fmt.Sprintf(promptTemplate, prompt)},
			{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
		}}},
		GenerationConfig: map[string]any{
			"temperature":      c.cfg.Temperature,
			"responseMimeType": "application/json",
		},
	}

	out, err := llm.Retry(ctx, c.cfg.Retry, c.logger, func(ctx context.Context, attempt int) (map[string]any, error) {
		resp, err := c.generate(ctx, body)
		if err != nil {
			return nil, err
		}
		return llm.SanitizeAndParse(resp.Text)
	})
	if err != nil {
		c.logger.Error("llm.extract.failed", append(common.LogAttrs(ctx),
			"req_id", rid,
			"provider", c.Name(),
			"kind", common.KindOf(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)...)
		return nil, err
	}
	c.logger.Info("llm.extract.ok", append(common.LogAttrs(ctx),
		"req_id", rid,
		"provider", c.Name(),
		"fields", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)...)
	return out, nil
}

func (c *Client) generate(ctx context.Context, body generateRequest) (llm.ModelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, nil, c.logger)
	if err != nil {
		return llm.ModelResponse{}, llm.Classify(c.Name(), err)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return llm.ModelResponse{}, common.NewAppError(common.KindUnparsableResponse, "decode gemini response", err)
	}
	if len(gr.Candidates) == 0 {
		return llm.ModelResponse{}, common.Errorf(common.KindUnparsableResponse, "no candidates in gemini response: %s", llm.Truncate(string(raw), 200))
	}
	var b strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return llm.ModelResponse{Text: b.String(), Provider: c.Name(), Model: c.cfg.Model, Elapsed: time.Since(start)}, nil
}
