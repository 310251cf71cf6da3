// Package gemini implements image and text extraction on Vertex AI Gemini
// through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
)

// Config for the Vertex AI Gemini client.
type Config struct {
	ProjectID   string
	Region      string // default us-central1
	Model       string // default gemini-1.5-flash
	Temperature float32
	Timeout     time.Duration // per attempt, default 45s
	Retry       llm.RetryPolicy
}

// generator is the one SDK call the client makes.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Client struct {
	cfg    Config
	logger *slog.Logger
	dial   func(ctx context.Context) (*genai.Client, generator, error)

	mu    sync.Mutex
	base  *genai.Client
	model generator
}

var (
	_ llm.ImageExtractor = (*Client)(nil)
	_ llm.TextExtractor  = (*Client)(nil)
)

// NewClient does not dial; the SDK client is created on first use.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Region == "" {
		cfg.Region = "us-central1"
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
	c := &Client{cfg: cfg, logger: logger}
	c.dial = c.dialVertex
	return c
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Available() bool {
	return c.cfg.ProjectID != "" && c.cfg.Region != ""
}

func (c *Client) dialVertex(ctx context.Context) (*genai.Client, generator, error) {
	base, err := genai.NewClient(ctx, c.cfg.ProjectID, c.cfg.Region)
	if err != nil {
		return nil, nil, err
	}
	m := base.GenerativeModel(c.cfg.Model)
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(c.cfg.Temperature),
	}
	return base, m, nil
}

// connect creates the SDK client on first use. A failed attempt is not
// remembered; the next call dials again.
func (c *Client) connect(ctx context.Context) (generator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		return c.model, nil
	}
	base, m, err := c.dial(ctx)
	if err != nil {
		c.logger.Error("llm.gemini.connect_failed", "project", c.cfg.ProjectID, "region", c.cfg.Region, "error", err)
		return nil, common.NewAppError(common.KindProviderError, "genai.NewClient", err)
	}
	c.base, c.model = base, m
	return m, nil
}

// Close releases the SDK client if one was created.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func (c *Client) ExtractFromImage(ctx context.Context, image []byte, prompt, mimeType string) (map[string]any, error) {
	parts := []genai.Part{
		genai.Text(llm.WithJSONInstruction(prompt)),
		genai.Blob{MIMEType: mimeType, Data: image},
	}
	return c.extract(ctx, "image", parts, len(image))
}

func (c *Client) ExtractFromText(ctx context.Context, text, prompt string) (map[string]any, error) {
	parts := []genai.Part{genai.Text(llm.WithInputText(prompt, text))}
	return c.extract(ctx, "text", parts, len(text))
}

func (c *Client) extract(ctx context.Context, mode string, parts []genai.Part, inputLen int) (map[string]any, error) {
	model, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	rid := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.extract.start", append(common.LogAttrs(ctx),
		"req_id", rid,
		"provider", c.Name(),
		"model", c.cfg.Model,
		"mode", mode,
		"input_bytes", inputLen,
	)...)

	out, err := llm.Retry(ctx, c.cfg.Retry, c.logger, func(ctx context.Context, attempt int) (map[string]any, error) {
		resp, err := c.generate(ctx, model, parts)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("llm.extract.raw", "req_id", rid, "attempt", attempt+1, "content", llm.Truncate(resp.Text, 500))
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

func (c *Client) generate(ctx context.Context, model generator, parts []genai.Part) (llm.ModelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return llm.ModelResponse{}, classify(err)
	}
	text, err := responseText(resp)
	if err != nil {
		return llm.ModelResponse{}, err
	}
	return llm.ModelResponse{Text: text, Provider: c.Name(), Model: c.cfg.Model, Elapsed: time.Since(start)}, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", common.Errorf(common.KindUnparsableResponse, "empty response from gemini")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", common.Errorf(common.KindUnparsableResponse, "no text parts in gemini response")
	}
	return b.String(), nil
}

// classify maps SDK errors, which carry gRPC status codes, onto the taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return common.NewAppError(common.KindTransientNetworkFailure, "gemini call timed out", err)
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
			return common.NewAppError(common.KindTransientNetworkFailure, fmt.Sprintf("gemini %s", s.Code()), err)
		case codes.Unknown:
		default:
			return common.NewAppError(common.KindProviderError, fmt.Sprintf("gemini %s", s.Code()), err)
		}
	}
	return llm.Classify("gemini", err)
}
