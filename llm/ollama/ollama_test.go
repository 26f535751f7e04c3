package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/audiolens/llm"
)

func TestComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "llama3",
			"message":           map[string]string{"role": "assistant", "content": "A short summary."},
			"done":              true,
			"prompt_eval_count": 12,
			"eval_count":        4,
		})
	}))
	defer srv.Close()

	p, err := NewProvider(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := p.Complete(context.Background(), llm.CompletionRequest{
		SystemPrompt: "summarize",
		Messages:     []llm.Message{{Role: "user", Content: "long text"}},
		MaxTokens:    150,
		JSON:         true,
	})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if resp.Content != "A short summary." || resp.Usage.TotalTokens != 16 {
		t.Errorf("unexpected response %+v", resp)
	}
	if got.Stream {
		t.Error("stream must be off")
	}
	if got.Format != "json" {
		t.Errorf("format = %q, want json", got.Format)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("system prompt not first: %+v", got.Messages)
	}
	if got.Options == nil || got.Options.NumPredict != 150 {
		t.Errorf("max tokens not forwarded: %+v", got.Options)
	}
}

func TestCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model 'llama3' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p, _ := NewProvider(Config{BaseURL: srv.URL})
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestDefaults(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if p.cfg.BaseURL != defaultURL || p.cfg.Model != defaultModel {
		t.Errorf("defaults not applied: %+v", p.cfg)
	}
	if p.buildRequest(llm.CompletionRequest{}).Options != nil {
		t.Error("options should be omitted when nothing is set")
	}
}
