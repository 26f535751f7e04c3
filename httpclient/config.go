package httpclient

import (
	"fmt"
	"time"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client. Zero Timeout means the default; a negative
// one disables the client-wide timeout and leaves cancellation to ctx.
type Config struct {
	Name    string            `mapstructure:"name"`
	BaseURL string            `mapstructure:"base_url"`
	Timeout time.Duration     `mapstructure:"timeout"`
	Headers map[string]string `mapstructure:"headers"`
	Auth    *AuthConfig       `mapstructure:"-"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.Name == "" {
		c.Name = "http"
	}
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("httpclient %s: base_url is required", c.Name)
	}
	return nil
}
