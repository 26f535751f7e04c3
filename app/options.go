package app

import (
	"time"

	"github.com/kbukum/audiolens/inference"
	"github.com/kbukum/audiolens/logger"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	models          *Models
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger instead of building one from the logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithModels replaces the configured model backends. Nil fields keep the
// configured backend.
func WithModels(m Models) Option {
	return func(o *appOptions) {
		o.models = &m
	}
}

// Models are the three model adapters the pipeline calls.
type Models struct {
	Transcriber inference.Transcriber
	Summarizer  inference.Summarizer
	Classifier  inference.Classifier
}
