package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// Request is one text generation call
type Request struct {
	Prompt      string
	Temperature float64
	// Schema, when set, asks for JSON output conforming to it.
	Schema *genai.Schema
}

// TextModel is the only surface stages see of the language model.
// Implementations are created once at startup and shared.
type TextModel interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// CleanJSON strips markdown fences if the model wraps a response in ```json ... ```
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Snippet returns at most n bytes of s for error messages.
func Snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
