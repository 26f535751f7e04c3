package app

import (
	"fmt"
	"slices"

	"github.com/kbukum/audiolens/config"
	"github.com/kbukum/audiolens/database"
	"github.com/kbukum/audiolens/intake"
	"github.com/kbukum/audiolens/kafka"
	llmopenai "github.com/kbukum/audiolens/llm/openai"
	"github.com/kbukum/audiolens/llm/ollama"
	"github.com/kbukum/audiolens/observability"
	"github.com/kbukum/audiolens/pipeline"
	"github.com/kbukum/audiolens/queue"
	"github.com/kbukum/audiolens/redis"
	"github.com/kbukum/audiolens/resilience"
	"github.com/kbukum/audiolens/server"
	"github.com/kbukum/audiolens/server/middleware"
	"github.com/kbukum/audiolens/storage"
	transcribeopenai "github.com/kbukum/audiolens/transcription/openai"
	"github.com/kbukum/audiolens/transcription/whisper"
	"github.com/kbukum/audiolens/worker"
)

// Config is the full audiolens configuration. Every process loads all of it
// and uses the sections it needs.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Database      database.Config      `yaml:"database" mapstructure:"database"`
	Storage       storage.Config       `yaml:"storage" mapstructure:"storage"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Kafka         kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Queue         queue.Config         `yaml:"queue" mapstructure:"queue"`
	Transcription TranscriptionConfig  `yaml:"transcription" mapstructure:"transcription"`
	LLM           LLMConfig            `yaml:"llm" mapstructure:"llm"`
	Pipeline      pipeline.Config      `yaml:"pipeline" mapstructure:"pipeline"`
	Worker        worker.Config        `yaml:"worker" mapstructure:"worker"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Intake        intake.Config        `yaml:"intake" mapstructure:"intake"`
	Auth          middleware.JWTConfig `yaml:"auth" mapstructure:"auth"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// TranscriptionConfig lists speech-to-text backends in fallback order.
type TranscriptionConfig struct {
	Providers []string                `yaml:"providers" mapstructure:"providers"`
	Language  string                  `yaml:"language" mapstructure:"language"`
	Whisper   whisper.Config          `yaml:"whisper" mapstructure:"whisper"`
	OpenAI    transcribeopenai.Config `yaml:"openai" mapstructure:"openai"`
	// Breaker takes a backend out of rotation after repeated failures.
	Breaker resilience.Config `yaml:"breaker" mapstructure:"breaker"`
}

// LLMConfig lists chat backends in fallback order. The same backends serve
// summarization and classification.
type LLMConfig struct {
	Providers []string `yaml:"providers" mapstructure:"providers"`
	// InputBudget caps the transcript tokens sent for summarization.
	InputBudget int `yaml:"input_budget" mapstructure:"input_budget"`
	// Tokenizer is tiktoken or words.
	Tokenizer string           `yaml:"tokenizer" mapstructure:"tokenizer"`
	Ollama    ollama.Config    `yaml:"ollama" mapstructure:"ollama"`
	OpenAI    llmopenai.Config `yaml:"openai" mapstructure:"openai"`
	Breaker   resilience.Config `yaml:"breaker" mapstructure:"breaker"`
}

const (
	TokenizerTiktoken = "tiktoken"
	TokenizerWords    = "words"
)

func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Queue.ApplyDefaults()
	switch c.Queue.Backend {
	case queue.BackendRedis:
		c.Redis.Enabled = true
	case queue.BackendKafka:
		c.Kafka.Enabled = true
	}
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Transcription.ApplyDefaults()
	c.LLM.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Worker.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Intake.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section and reports the first failure with its name.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"service", &c.ServiceConfig},
		{"database", &c.Database},
		{"storage", &c.Storage},
		{"redis", &c.Redis},
		{"kafka", &c.Kafka},
		{"queue", &c.Queue},
		{"transcription", &c.Transcription},
		{"llm", &c.LLM},
		{"pipeline", &c.Pipeline},
		{"worker", &c.Worker},
		{"server", &c.Server},
		{"intake", &c.Intake},
		{"auth", &c.Auth},
		{"observability", &c.Observability},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (c *TranscriptionConfig) ApplyDefaults() {
	if len(c.Providers) == 0 {
		c.Providers = []string{whisper.ProviderName}
	}
	c.Whisper.ApplyDefaults()
}

func (c *TranscriptionConfig) Validate() error {
	return validateProviders(c.Providers, []string{whisper.ProviderName, transcribeopenai.ProviderName})
}

func (c *LLMConfig) ApplyDefaults() {
	if len(c.Providers) == 0 {
		c.Providers = []string{ollama.ProviderName}
	}
	if c.InputBudget == 0 {
		c.InputBudget = 3000
	}
	if c.Tokenizer == "" {
		c.Tokenizer = TokenizerTiktoken
	}
	c.Ollama.ApplyDefaults()
}

func (c *LLMConfig) Validate() error {
	if c.InputBudget < 0 {
		return fmt.Errorf("input_budget must be positive (got: %d)", c.InputBudget)
	}
	if c.Tokenizer != TokenizerTiktoken && c.Tokenizer != TokenizerWords {
		return fmt.Errorf("tokenizer must be %s or %s (got: %s)", TokenizerTiktoken, TokenizerWords, c.Tokenizer)
	}
	return validateProviders(c.Providers, []string{ollama.ProviderName, llmopenai.ProviderName})
}

func validateProviders(order, known []string) error {
	seen := map[string]bool{}
	for _, name := range order {
		if !slices.Contains(known, name) {
			return fmt.Errorf("unknown provider %q, expected one of %v", name, known)
		}
		if seen[name] {
			return fmt.Errorf("provider %q listed twice", name)
		}
		seen[name] = true
	}
	return nil
}

// Load reads the configuration for the audiolens service, applies defaults
// and validates it.
func Load(opts ...config.LoaderOption) (*Config, error) {
	var cfg Config
	if err := config.LoadConfig("audiolens", &cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}
