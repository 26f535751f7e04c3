// Package llm is the chat-completion contract used by the summarizer and the
// topic classifier. Backends live in subpackages: ollama and openai.
package llm

import (
	"context"

	"github.com/kbukum/audiolens/provider"
)

// Provider sends one chat completion and returns the full reply.
type Provider interface {
	provider.Provider

	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is backend-neutral. Zero Temperature and MaxTokens use
// the backend defaults. JSON asks the backend for a JSON object reply.
type CompletionRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
	JSON         bool
}

type CompletionResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
