package segmenter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPunkt(t *testing.T) *Punkt {
	t.Helper()
	p, err := New()
	require.NoError(t, err)
	return p
}

func TestSegment(t *testing.T) {
	p := newPunkt(t)
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"two sentences", "Hello there. How are you?", []string{"Hello there.", "How are you?"}},
		{"single", "The invoice looks wrong.", []string{"The invoice looks wrong."}},
		{"no terminal punctuation", "just some words", []string{"just some words"}},
		{"surrounding whitespace", "  Hello there.   See you soon.  ", []string{"Hello there.", "See you soon."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Segment(tt.in))
		})
	}
}

func TestSegmentEmpty(t *testing.T) {
	p := newPunkt(t)
	assert.Empty(t, p.Segment(""))
	assert.Empty(t, p.Segment(" \n\t "))
}

func TestSegmentDeterministic(t *testing.T) {
	p := newPunkt(t)
	text := "The app crashes on login. Could you add dark mode? Thanks, great product!"
	assert.Equal(t, p.Segment(text), p.Segment(text))
}
