package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/audiolens/llm"
	"github.com/kbukum/audiolens/provider"
)

const summarizePrompt = `You summarize call and voice-note transcripts for a support team.
Write a neutral summary of the transcript in plain prose.
The summary must be between %d and %d tokens long. Do not add a title or bullet points.`

// LLMSummarizer prompts a chat model for a bounded summary.
type LLMSummarizer struct {
	providers   *provider.Manager[llm.Provider]
	clipper     TokenClipper
	inputBudget int
}

var _ Summarizer = (*LLMSummarizer)(nil)

// NewLLMSummarizer clips transcripts to inputBudget tokens before prompting.
// A nil clipper uses WordClipper.
func NewLLMSummarizer(providers *provider.Manager[llm.Provider], clipper TokenClipper, inputBudget int) *LLMSummarizer {
	if clipper == nil {
		clipper = WordClipper{}
	}
	return &LLMSummarizer{providers: providers, clipper: clipper, inputBudget: inputBudget}
}

// Summarize returns "" for blank text without calling the model.
func (s *LLMSummarizer) Summarize(ctx context.Context, text string, bounds LengthBounds) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if err := bounds.Validate(); err != nil {
		return "", err
	}
	system := fmt.Sprintf(summarizePrompt, bounds.MinTokens, bounds.MaxTokens)
	var out, name string
	err := s.providers.Do(ctx, func(p llm.Provider) error {
		name = p.Name()
		var err error
		out, err = llm.Complete(ctx, p, system, s.clipper.Clip(text, s.inputBudget),
			llm.WithMaxTokens(bounds.MaxTokens),
			llm.WithTemperature(0),
		)
		return err
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("inference: %s returned an empty summary", name)
	}
	return out, nil
}
