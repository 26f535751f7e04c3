package inference

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenClipper truncates text to at most max tokens.
type TokenClipper interface {
	Clip(text string, max int) string
}

// TiktokenClipper counts with a BPE encoding.
type TiktokenClipper struct {
	enc *tiktoken.Tiktoken
}

var (
	encOnce sync.Once
	encErr  error
	enc     *tiktoken.Tiktoken
)

// NewTiktokenClipper loads cl100k_base once per process.
func NewTiktokenClipper() (*TiktokenClipper, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})
	if encErr != nil {
		return nil, fmt.Errorf("inference: load tiktoken encoding: %w", encErr)
	}
	return &TiktokenClipper{enc: enc}, nil
}

func (c *TiktokenClipper) Clip(text string, max int) string {
	if max <= 0 {
		return text
	}
	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text
	}
	return c.enc.Decode(tokens[:max])
}

// WordClipper approximates tokens with whitespace-separated words. Used when
// the BPE table cannot be loaded.
type WordClipper struct{}

func (WordClipper) Clip(text string, max int) string {
	if max <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ")
}
