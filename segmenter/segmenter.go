// Package segmenter splits a transcript into sentences with the Punkt
// English model.
package segmenter

import (
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Segmenter is deterministic: the same text always yields the same sentences.
type Segmenter interface {
	Segment(text string) []string
}

// Punkt wraps the pretrained English sentence tokenizer.
type Punkt struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

var _ Segmenter = (*Punkt)(nil)

func New() (*Punkt, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}
	return &Punkt{tokenizer: tok}, nil
}

// Segment returns trimmed, non-empty sentences in transcript order.
func (p *Punkt) Segment(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, s := range p.tokenizer.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}
