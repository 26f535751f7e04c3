package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/audiolens/logger"
)

// ServiceConfig holds the fields every audiolens process shares. Larger
// configs embed it with `mapstructure:",squash"`.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

// ApplyDefaults fills empty fields. Development turns on debug logging.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "audiolens"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
		if c.Logging.Level == "" {
			c.Logging.Level = "debug"
		}
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the service identity and the logging section.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	envs := []string{"development", "test", "staging", "production"}
	if !slices.Contains(envs, c.Environment) {
		return fmt.Errorf("environment must be one of %v (got: %s)", envs, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
