// Package transcription defines the speech-to-text backend contract. Backends
// live in subpackages: whisper (self-hosted HTTP sidecar) and openai.
package transcription

import (
	"context"

	"github.com/kbukum/audiolens/provider"
)

// Provider turns an audio file on local disk into text.
type Provider interface {
	provider.Provider

	Transcribe(ctx context.Context, req Request) (*Response, error)
}

// Request names the file to transcribe. Empty Model and Language fall back to
// the backend's configured values.
type Request struct {
	AudioPath string
	Language  string
	Model     string
}

// Response is the transcript. Segments are the backend's own time-aligned
// chunks and are informational; sentence splitting happens downstream.
type Response struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
