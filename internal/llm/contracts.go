package llm

import (
	"context"
	"time"
)

// Provider is a model backend that can report whether it is usable with the
// credentials it was built from. Available must not touch the network.
type Provider interface {
	Name() string
	Available() bool
}

// ImageExtractor turns an image plus an extraction prompt into structured data.
type ImageExtractor interface {
	Provider
	ExtractFromImage(ctx context.Context, image []byte, prompt, mimeType string) (map[string]any, error)
}

// TextExtractor turns plain text plus an extraction prompt into structured data.
type TextExtractor interface {
	Provider
	ExtractFromText(ctx context.Context, text, prompt string) (map[string]any, error)
}

// ModelRequest is what a provider sends for one attempt.
type ModelRequest struct {
	Image    []byte
	Text     string
	Prompt   string
	MimeType string
}

// ModelResponse is the raw model text plus where it came from.
type ModelResponse struct {
	Text     string
	Provider string
	Model    string
	Elapsed  time.Duration
}

// JSONInstruction is appended to every prompt before it is sent.
const JSONInstruction = "Return ONLY valid JSON, no other text."

// WithJSONInstruction appends JSONInstruction to prompt.
func WithJSONInstruction(prompt string) string {
	return prompt + "\n\n" + JSONInstruction
}

// WithInputText appends the document text and the JSON instruction to prompt.
func WithInputText(prompt, text string) string {
	return prompt + "\n\nInput text:\n" + text + "\n\n" + JSONInstruction
}
