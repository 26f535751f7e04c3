// Package config loads service configuration from a YAML file, an optional
// environment overlay file, a .env file and the process environment, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file lookups made by the loader.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// OSFileSystem is the FileSystem backed by the real disk.
type OSFileSystem struct{}

func (OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds the loader's dependencies and explicit file overrides.
type LoaderConfig struct {
	FileSystem  FileSystem
	ConfigFile  string
	EnvFile     string
	Environment string
}

// LoaderOption customizes LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem swaps the filesystem, mostly for tests.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile pins the YAML config path instead of searching for it.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile pins the .env path instead of searching for it.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvironment selects the overlay file config.<env>.yml merged over the base file.
// Without it the ENVIRONMENT variable is used.
func WithEnvironment(env string) LoaderOption {
	return func(lc *LoaderConfig) { lc.Environment = env }
}

// ResolvedFiles are the files the loader will actually read.
type ResolvedFiles struct {
	ConfigFile  string
	OverlayFile string
	EnvFile     string
}

// Resolve finds the config, overlay and env files for a service.
func Resolve(serviceName string, lc LoaderConfig) ResolvedFiles {
	fs := lc.FileSystem
	if fs == nil {
		fs = OSFileSystem{}
	}

	files := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if files.ConfigFile == "" {
		files.ConfigFile = firstExisting(fs, []string{
			filepath.Join("cmd", serviceName, "config.yml"),
			filepath.Join("config", "config.yml"),
			"config.yml",
		})
	}
	if files.EnvFile == "" {
		files.EnvFile = firstExisting(fs, []string{
			filepath.Join("cmd", serviceName, ".env"),
			".env." + serviceName,
			".env",
		})
	}

	env := lc.Environment
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env != "" && files.ConfigFile != "" {
		ext := filepath.Ext(files.ConfigFile)
		overlay := strings.TrimSuffix(files.ConfigFile, ext) + "." + env + ext
		if fs.Exists(overlay) {
			files.OverlayFile = overlay
		}
	}
	return files
}

// LoadConfig fills cfg for serviceName. Missing files are not an error; a
// malformed file is.
func LoadConfig(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = OSFileSystem{}
	}
	files := Resolve(serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", files.ConfigFile, err)
		}
	}
	if files.OverlayFile != "" {
		v.SetConfigFile(files.OverlayFile)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("merge config %s: %w", files.OverlayFile, err)
		}
	}

	// .env never overrides variables already present in the process.
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	}
	v.AutomaticEnv()
	bindEnv(v, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unmarshal config for %s: %w", serviceName, err)
	}
	return nil
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// bindEnv sets every KEY=value pair under each nesting its underscores could mean,
// so DATABASE_MAX_OPEN_CONNS reaches database.max_open_conns.
func bindEnv(v *viper.Viper, environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants expands A_B_C into a_b_c, a.b_c, a.b.c and a_b.c.
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) == 1 {
		return []string{lower}
	}

	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(lower)
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
		add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:], "_"))
	}
	if len(parts) >= 3 {
		// two-level nesting with an underscored leaf: storage.s3.secret_access_key
		for i := 1; i < len(parts)-1; i++ {
			for j := i + 1; j < len(parts); j++ {
				add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:j], "_") + "." + strings.Join(parts[j:], "_"))
			}
		}
	}
	return out
}
