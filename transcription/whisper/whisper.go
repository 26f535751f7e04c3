// Package whisper calls a faster-whisper HTTP sidecar (POST /transcribe,
// multipart field "audio").
package whisper

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kbukum/audiolens/httpclient"
	"github.com/kbukum/audiolens/transcription"
)

const (
	ProviderName = "whisper"

	defaultURL     = "http://localhost:8387"
	defaultModel   = "base"
	defaultTimeout = 10 * time.Minute
)

type Config struct {
	URL         string        `mapstructure:"url"`
	Model       string        `mapstructure:"model"`
	Language    string        `mapstructure:"language"`
	Device      string        `mapstructure:"device"`
	ComputeType string        `mapstructure:"compute_type"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = defaultURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}

// Provider implements transcription.Provider.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

var _ transcription.Provider = (*Provider)(nil)

func NewProvider(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	client, err := httpclient.New(httpclient.Config{Name: ProviderName, BaseURL: cfg.URL, Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable probes the sidecar's /health endpoint.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	return p.client.Ping(ctx, "/health")
}

func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio: %w", err)
	}
	defer f.Close()

	fields := map[string]string{"model": firstNonEmpty(req.Model, p.cfg.Model)}
	if lang := firstNonEmpty(req.Language, p.cfg.Language); lang != "" {
		fields["language"] = lang
	}
	if p.cfg.Device != "" {
		fields["device"] = p.cfg.Device
	}
	if p.cfg.ComputeType != "" {
		fields["compute_type"] = p.cfg.ComputeType
	}

	out, err := httpclient.DoJSON[whisperResponse](ctx, p.client, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files:  []httpclient.FileField{{FieldName: "audio", FileName: filepath.Base(req.AudioPath), Reader: f}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: transcribe: %w", err)
	}
	return out.toResponse(), nil
}

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

func (r *whisperResponse) toResponse() *transcription.Response {
	resp := &transcription.Response{
		Text:     r.Text,
		Language: r.Language,
		Segments: make([]transcription.Segment, len(r.Segments)),
	}
	for i, s := range r.Segments {
		resp.Segments[i] = transcription.Segment{Start: s.Start, End: s.End, Text: s.Text}
	}
	if n := len(r.Segments); n > 0 {
		resp.Duration = r.Segments[n-1].End
	}
	return resp
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
