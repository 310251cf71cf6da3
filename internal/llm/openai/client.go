package openai

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/store-extractor/internal/common"
	"github.com/joseph-ayodele/store-extractor/internal/llm"
)

const (
	imageSystemMessage = "You are a data extraction assistant. Extract information from images and return ONLY valid JSON."
	textSystemMessage  = "You are a data extraction assistant. Extract information from text and return ONLY valid JSON."
)

var (
	_ llm.ImageExtractor = (*Client)(nil)
	_ llm.TextExtractor  = (*Client)(nil)
)

// ExtractFromImage sends the image as a data-URL content part.
func (c *Client) ExtractFromImage(ctx context.Context, image []byte, prompt, mimeType string) (map[string]any, error) {
	messages := []map[string]any{
		{"role": "system", "content": imageSystemMessage},
		{"role": "user", "content": []map[string]any{
			{"type": "text", "text": llm.WithJSONInstruction(prompt)},
			{"type": "image_url", "image_url": map[string]any{"url": llm.DataURL(image, mimeType)}},
		}},
	}
	return c.extract(ctx, "image", messages, len(image))
}

// ExtractFromText sends the prompt followed by the document text.
func (c *Client) ExtractFromText(ctx context.Context, text, prompt string) (map[string]any, error) {
	messages := []map[string]any{
		{"role": "system", "content": textSystemMessage},
		{"role": "user", "content": llm.WithInputText(prompt, text)},
	}
	return c.extract(ctx, "text", messages, len(text))
}

func (c *Client) extract(ctx context.Context, mode string, messages []map[string]any, inputLen int) (map[string]any, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.extract.start", append(common.LogAttrs(ctx),
		"req_id", rid,
		"provider", c.Name(),
		"model", c.cfg.Model,
		"mode", mode,
		"input_bytes", inputLen,
	)...)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"max_tokens":      c.cfg.MaxTokens,
		"messages":        messages,
		"response_format": map[string]any{"type": "json_object"},
	}

	out, err := llm.Retry(ctx, c.cfg.Retry, c.logger, func(ctx context.Context, attempt int) (map[string]any, error) {
		resp, err := c.complete(ctx, body)
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

// complete makes one chat/completions call under the per-attempt timeout.
func (c *Client) complete(ctx context.Context, body map[string]any) (llm.ModelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return llm.ModelResponse{}, llm.Classify(c.Name(), err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return llm.ModelResponse{}, common.NewAppError(common.KindUnparsableResponse, "decode openai response", err)
	}
	if len(cc.Choices) == 0 {
		return llm.ModelResponse{}, common.Errorf(common.KindUnparsableResponse, "no choices in openai response: %s", llm.Truncate(string(raw), 200))
	}
	return llm.ModelResponse{
		Text:     cc.Choices[0].Message.Content,
		Provider: c.Name(),
		Model:    c.cfg.Model,
		Elapsed:  time.Since(start),
	}, nil
}
