package inference

import (
	"context"
	"strings"

	"github.com/kbukum/audiolens/provider"
	"github.com/kbukum/audiolens/transcription"
)

// ProviderTranscriber resolves a transcription backend per call, so a
// fallback backend takes over when the primary is unreachable.
type ProviderTranscriber struct {
	providers *provider.Manager[transcription.Provider]
	language  string
}

var _ Transcriber = (*ProviderTranscriber)(nil)

func NewProviderTranscriber(providers *provider.Manager[transcription.Provider], language string) *ProviderTranscriber {
	return &ProviderTranscriber{providers: providers, language: language}
}

func (t *ProviderTranscriber) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	var resp *transcription.Response
	err := t.providers.Do(ctx, func(p transcription.Provider) error {
		var err error
		resp, err = p.Transcribe(ctx, transcription.Request{AudioPath: audioPath, Language: t.language})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}
