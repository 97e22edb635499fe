// Package llm provides an abstraction for language-model calls.
package llm

import "context"

// Client sends a fully composed prompt to a language model.
type Client interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single-prompt completion request.
type GenerateRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// GenerateResponse carries the model's text.
type GenerateResponse struct {
	Text  string
	Model string
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

// Generate calls f.
func (f ClientFunc) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	return f(ctx, req)
}

var (
	_ Client = (*OpenAIClient)(nil)
	_ Client = (*MockClient)(nil)
	_ Client = ClientFunc(nil)
)
