package intake

import (
	"fmt"
	"strings"
	"time"
)

// Config holds intake API settings.
type Config struct {
	// MaxUploadBytes caps direct uploads through POST /uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	// AllowedExtensions lists accepted audio extensions with the leading dot.
	AllowedExtensions []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
	// URLExpiry is the lifetime of signed audio links in GET /uploads/:id.
	URLExpiry time.Duration `yaml:"url_expiry" mapstructure:"url_expiry"`
}

var DefaultExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm"}

func (c *Config) ApplyDefaults() {
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 100 << 20
	}
	if len(c.AllowedExtensions) == 0 {
		c.AllowedExtensions = append([]string(nil), DefaultExtensions...)
	}
	for i, ext := range c.AllowedExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.AllowedExtensions[i] = ext
	}
	if c.URLExpiry == 0 {
		c.URLExpiry = 15 * time.Minute
	}
}

func (c *Config) Validate() error {
	if c.MaxUploadBytes < 0 {
		return fmt.Errorf("intake.max_upload_bytes must be positive (got: %d)", c.MaxUploadBytes)
	}
	if c.URLExpiry < 0 {
		return fmt.Errorf("intake.url_expiry must be positive (got: %s)", c.URLExpiry)
	}
	return nil
}
