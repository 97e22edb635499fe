package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient is a deterministic Client used in MOCK mode. It never returns
// structured JSON, so classification and extraction take their local paths.
type MockClient struct{}

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Generate echoes the question found in the prompt.
func (m *MockClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &GenerateResponse{
		Text:  m.generateMockResponse(req.Prompt),
		Model: "mock",
	}, nil
}

func (m *MockClient) generateMockResponse(prompt string) string {
	question := lastSection(prompt, "QUESTION:")
	if question == "" {
		return "[MOCK] This is a mock response from the language model."
	}
	return fmt.Sprintf("[MOCK] Received your question: %q. This is a mock response.", truncate(question, 100))
}

// lastSection returns the first line after the last occurrence of marker.
func lastSection(prompt, marker string) string {
	idx := strings.LastIndex(prompt, marker)
	if idx < 0 {
		return ""
	}
	rest := strings.TrimSpace(prompt[idx+len(marker):])
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
