// Package inference exposes the three model capabilities the pipeline
// consumes (transcribe, summarize, classify) as narrow interfaces, with
// implementations backed by the transcription and llm providers.
package inference

import (
	"context"
	"errors"
)

// Transcript is the transcriber output. Language and Duration are
// informational.
type Transcript struct {
	Text     string
	Language string
	Duration float64
}

// LengthBounds is the requested summary length in tokens.
type LengthBounds struct {
	MinTokens int `mapstructure:"min_tokens"`
	MaxTokens int `mapstructure:"max_tokens"`
}

// DefaultBounds keeps summaries between 30 and 150 tokens.
var DefaultBounds = LengthBounds{MinTokens: 30, MaxTokens: 150}

func (b LengthBounds) Validate() error {
	if b.MinTokens < 0 || b.MaxTokens <= 0 || b.MinTokens > b.MaxTokens {
		return errors.New("inference: summary bounds need 0 <= min_tokens <= max_tokens and max_tokens > 0")
	}
	return nil
}

// DefaultLabels is the topic taxonomy used when none is configured.
var DefaultLabels = []string{
	"Pricing Inquiry",
	"Technical Issue",
	"Positive Feedback",
	"Feature Request",
	"General Question",
}

// ErrEmptyRanking is returned when a classifier produces no usable label.
var ErrEmptyRanking = errors.New("inference: classifier returned no label")

// Transcriber turns an audio file on local disk into text. An empty
// transcript is a valid result.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*Transcript, error)
}

// Summarizer condenses text into a summary within bounds.
type Summarizer interface {
	Summarize(ctx context.Context, text string, bounds LengthBounds) (string, error)
}

// Classifier ranks labels for text, best first. The ranking only contains
// entries from labels.
type Classifier interface {
	Classify(ctx context.Context, text string, labels []string) ([]string, error)
}
