package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/audiolens/llm"
	"github.com/kbukum/audiolens/provider"
)

const classifyPrompt = `You label sentences from customer conversations with topics.
Rank every candidate label from most to least likely for the sentence.
Candidate labels: %s
Reply as {"labels": ["<best label>", "..."]} using the labels exactly as written.`

// LLMClassifier asks a chat model for a ranking of the candidate labels.
type LLMClassifier struct {
	providers *provider.Manager[llm.Provider]
}

var _ Classifier = (*LLMClassifier)(nil)

func NewLLMClassifier(providers *provider.Manager[llm.Provider]) *LLMClassifier {
	return &LLMClassifier{providers: providers}
}

func (c *LLMClassifier) Classify(ctx context.Context, text string, labels []string) ([]string, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("inference: no candidate labels")
	}
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	system := fmt.Sprintf(classifyPrompt, strings.Join(quoted, ", "))
	var reply struct {
		Labels []string `json:"labels"`
	}
	err := c.providers.Do(ctx, func(p llm.Provider) error {
		return llm.CompleteJSON(ctx, p, system, text, &reply, llm.WithTemperature(0))
	})
	if err != nil {
		return nil, err
	}
	return Rank(reply.Labels, labels)
}

// Rank maps a model's ranking onto the candidate set: unknown entries are
// dropped, matching ignores case, duplicates keep their first position and
// candidates the model left out follow in configured order. A ranking with
// no known label fails with ErrEmptyRanking.
func Rank(ranked, candidates []string) ([]string, error) {
	canonical := make(map[string]string, len(candidates))
	for _, c := range candidates {
		canonical[strings.ToLower(strings.TrimSpace(c))] = c
	}

	out := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, r := range ranked {
		c, ok := canonical[strings.ToLower(strings.TrimSpace(r))]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrEmptyRanking
	}
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}
