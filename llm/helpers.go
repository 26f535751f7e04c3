package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Complete sends a system and a user prompt and returns the reply text.
func Complete(ctx context.Context, p Provider, system, user string, opts ...func(*CompletionRequest)) (string, error) {
	req := CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: "user", Content: user}},
	}
	for _, o := range opts {
		o(&req)
	}
	resp, err := p.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CompleteJSON asks for a JSON object and decodes it into result. Markdown
// fences and chatter around the object are tolerated.
func CompleteJSON(ctx context.Context, p Provider, system, user string, result any, opts ...func(*CompletionRequest)) error {
	system += "\n\nRespond with ONLY the JSON object. No markdown, no explanations."
	opts = append(opts, func(r *CompletionRequest) { r.JSON = true })

	content, err := Complete(ctx, p, system, user, opts...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(ExtractJSON(content)), result); err != nil {
		return fmt.Errorf("llm: decode json reply: %w", err)
	}
	return nil
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) func(*CompletionRequest) {
	return func(r *CompletionRequest) { r.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) func(*CompletionRequest) {
	return func(r *CompletionRequest) { r.Temperature = t }
}

// ExtractJSON returns the outermost {...} in s, after stripping code fences.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
