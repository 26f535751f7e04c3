// Package openai transcribes audio with the OpenAI speech-to-text API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/kbukum/audiolens/transcription"
)

const (
	ProviderName = "openai"

	defaultModel   = openai.AudioModelWhisper1
	defaultTimeout = 10 * time.Minute
)

var ErrAPIKeyNotSet = errors.New("openai transcription: api key not set")

type Config struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Provider implements transcription.Provider.
type Provider struct {
	client openai.Client
	cfg    Config
}

var _ transcription.Provider = (*Provider)(nil)

func NewProvider(cfg Config, opts ...option.RequestOption) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if cfg.Model == "" {
		cfg.Model = string(defaultModel)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithRequestTimeout(cfg.Timeout)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &Provider{client: openai.NewClient(reqOpts...), cfg: cfg}, nil
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports configured credentials; the API has no cheap health probe.
func (p *Provider) IsAvailable(_ context.Context) bool { return p.cfg.APIKey != "" }

func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: open audio: %w", err)
	}
	defer f.Close()

	model := p.cfg.Model
	if req.Model != "" {
		model = req.Model
	}
	params := openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(model),
	}
	if lang := firstNonEmpty(req.Language, p.cfg.Language); lang != "" {
		params.Language = openai.String(lang)
	}

	resp, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	return &transcription.Response{Text: resp.Text}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
