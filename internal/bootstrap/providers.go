// Package bootstrap turns a common.Config into the concrete stores, blob
// store and model providers the binaries run with.
package bootstrap

import (
	"log/slog"

	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
	"github.com/joseph-ayodele/store-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/store-extractor/internal/llm/geminihttp"
	"github.com/joseph-ayodele/store-extractor/internal/llm/openai"
)

// Providers returns every configured provider in probe order: Vertex AI
// Gemini, Gemini over REST, then OpenAI. Unconfigured providers are still
// returned and report themselves unavailable. The close func releases the
// Gemini SDK client.
func Providers(cfg common.LLMConfig, logger *slog.Logger) ([]llm.Provider, func()) {
	retry := llm.RetryPolicy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.RetryBase}

	vertex := gemini.NewClient(gemini.Config{
		ProjectID:   cfg.GeminiProjectID,
		Region:      cfg.GeminiRegion,
		Model:       cfg.GeminiModel,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		Retry:       retry,
	}, logger)
	rest := geminihttp.NewClient(geminihttp.Config{
		APIKey:      cfg.GeminiAPIKey,
		BaseURL:     cfg.GeminiBaseURL,
		Model:       cfg.GeminiModel,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		Retry:       retry,
	}, logger)
	oa := openai.NewClient(openai.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
		Retry:       retry,
	}, logger)

	providers := []llm.Provider{vertex, rest, oa}
	for _, p := range providers {
		logger.Info("bootstrap.provider", "name", p.Name(), "available", p.Available())
	}
	return providers, func() {
		if err := vertex.Close(); err != nil {
			logger.Warn("bootstrap.provider.close_failed", "name", vertex.Name(), "error", err)
		}
	}
}
