package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/joseph-ayodele/store-extractor/internal/llm"
)

// Config for the OpenAI client.
type Config struct {
	APIKey      string        // empty means unavailable
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // default gpt-4o-mini, used for images and text
	Temperature float32       // default 0.1
	MaxTokens   int           // default 2000
	Timeout     time.Duration // per attempt, default 45s
	Retry       llm.RetryPolicy
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
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
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}

func (c *Client) Name() string { return "openai" }

func (c *Client) Available() bool { return c.cfg.APIKey != "" }
