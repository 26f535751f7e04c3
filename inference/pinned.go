package inference

import (
	"context"
	"sync"
)

// PinnedTranscriber returns Text (or Err) for every file. It records the
// paths it was called with.
type PinnedTranscriber struct {
	Text string
	Err  error

	mu    sync.Mutex
	Paths []string
}

func (p *PinnedTranscriber) Transcribe(_ context.Context, audioPath string) (*Transcript, error) {
	p.mu.Lock()
	p.Paths = append(p.Paths, audioPath)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	return &Transcript{Text: p.Text}, nil
}

// PinnedSummarizer returns Summary (or Err).
type PinnedSummarizer struct {
	Summary string
	Err     error

	mu     sync.Mutex
	Calls  int
	Bounds LengthBounds
}

func (p *PinnedSummarizer) Summarize(_ context.Context, _ string, bounds LengthBounds) (string, error) {
	p.mu.Lock()
	p.Calls++
	p.Bounds = bounds
	p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	return p.Summary, nil
}

// PinnedClassifier puts Label first when set, otherwise returns labels in
// configured order. Err fails every call.
type PinnedClassifier struct {
	Label string
	Err   error

	mu    sync.Mutex
	Texts []string
}

func (p *PinnedClassifier) Classify(_ context.Context, text string, labels []string) ([]string, error) {
	p.mu.Lock()
	p.Texts = append(p.Texts, text)
	p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Label == "" {
		return append([]string(nil), labels...), nil
	}
	return Rank([]string{p.Label}, labels)
}

// Calls returns how many sentences were classified.
func (p *PinnedClassifier) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Texts)
}

var (
	_ Transcriber = (*PinnedTranscriber)(nil)
	_ Summarizer  = (*PinnedSummarizer)(nil)
	_ Classifier  = (*PinnedClassifier)(nil)
)
