package storage

import (
	"errors"
	"fmt"
)

// Backend names accepted in Config.Provider.
const (
	ProviderLocal    = "local"
	ProviderMemory   = "memory"
	ProviderS3       = "s3"
	ProviderSupabase = "supabase"
)

const (
	DefaultBucket      = "media-uploads"
	DefaultBasePath    = "./data/blobs"
	DefaultRegion      = "us-east-1"
	DefaultMaxFileSize = int64(200 << 20)
)

// Config selects and configures the blob backend. Fields that do not apply to
// the chosen provider are ignored.
type Config struct {
	Provider string `mapstructure:"provider" json:"provider"`
	Bucket   string `mapstructure:"bucket" json:"bucket"`

	// local
	BasePath string `mapstructure:"base_path" json:"base_path"`

	// s3 and s3-compatible
	Region         string `mapstructure:"region" json:"region"`
	Endpoint       string `mapstructure:"endpoint" json:"endpoint"`
	AccessKey      string `mapstructure:"access_key" json:"access_key"`
	SecretKey      string `mapstructure:"secret_key" json:"-"`
	ForcePathStyle bool   `mapstructure:"force_path_style" json:"force_path_style"`

	// supabase; SecretKey doubles as the service-role key
	URL string `mapstructure:"url" json:"url"`

	MaxFileSize int64 `mapstructure:"max_file_size" json:"max_file_size"`
}

func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderLocal
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			errs = append(errs, errors.New("base_path is required"))
		}
	case ProviderMemory:
	case ProviderS3:
		if c.Bucket == "" {
			errs = append(errs, errors.New("bucket is required"))
		}
		if c.Region == "" {
			errs = append(errs, errors.New("region is required"))
		}
	case ProviderSupabase:
		if c.URL == "" {
			errs = append(errs, errors.New("url is required"))
		}
		if c.Bucket == "" {
			errs = append(errs, errors.New("bucket is required"))
		}
		if c.SecretKey == "" {
			errs = append(errs, errors.New("secret_key is required"))
		}
	default:
		return fmt.Errorf("storage: unsupported provider %q", c.Provider)
	}
	if len(errs) > 0 {
		return fmt.Errorf("storage: invalid %s config: %w", c.Provider, errors.Join(errs...))
	}
	return nil
}
