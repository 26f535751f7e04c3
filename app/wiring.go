package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/audiolens/component"
	"github.com/kbukum/audiolens/database"
	"github.com/kbukum/audiolens/inference"
	"github.com/kbukum/audiolens/intake"
	"github.com/kbukum/audiolens/jobs"
	"github.com/kbukum/audiolens/jobs/gormstore"
	"github.com/kbukum/audiolens/llm"
	llmopenai "github.com/kbukum/audiolens/llm/openai"
	"github.com/kbukum/audiolens/llm/ollama"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/observability"
	"github.com/kbukum/audiolens/pipeline"
	"github.com/kbukum/audiolens/provider"
	"github.com/kbukum/audiolens/queue"
	"github.com/kbukum/audiolens/redis"
	"github.com/kbukum/audiolens/resilience"
	"github.com/kbukum/audiolens/segmenter"
	"github.com/kbukum/audiolens/server"
	"github.com/kbukum/audiolens/server/middleware"
	"github.com/kbukum/audiolens/storage"
	"github.com/kbukum/audiolens/transcription"
	transcribeopenai "github.com/kbukum/audiolens/transcription/openai"
	"github.com/kbukum/audiolens/transcription/whisper"
	"github.com/kbukum/audiolens/worker"

	// blob backends register themselves with storage.New
	_ "github.com/kbukum/audiolens/storage/local"
	_ "github.com/kbukum/audiolens/storage/memory"
	_ "github.com/kbukum/audiolens/storage/s3"
	_ "github.com/kbukum/audiolens/storage/supabase"
)

// UseDatabase registers the database component. Job tables are auto-migrated
// on start when database.auto_migrate is set.
func (a *App) UseDatabase() *database.Component {
	if a.db == nil {
		a.db = database.NewComponent(a.Cfg.Database, a.Log).WithAutoMigrate(gormstore.Models()...)
		a.mustRegister(a.db)
	}
	return a.db
}

// UseStorage registers the blob store component.
func (a *App) UseStorage() *storage.Component {
	if a.blobs == nil {
		a.blobs = storage.NewComponent(a.Cfg.Storage, a.Log)
		a.mustRegister(a.blobs)
	}
	return a.blobs
}

// UseQueue registers the queue component, preceded by Redis when that is the
// backend. consume opens the receiving side too.
func (a *App) UseQueue(consume bool) {
	if a.queue != nil {
		a.queue.consume = a.queue.consume || consume
		return
	}
	if a.Cfg.Queue.Backend == queue.BackendRedis {
		a.redis = redis.NewComponent(a.Cfg.Redis, a.Log)
		a.mustRegister(a.redis)
	}
	a.queue = &queueComponent{cfg: a.Cfg, consume: consume, redis: a.redis, log: a.Log}
	a.mustRegister(a.queue)
}

// mustRegister panics on a duplicate name; the Use methods guard against it.
func (a *App) mustRegister(c component.Component) {
	if err := a.Components.Register(c); err != nil {
		panic(err)
	}
}

// Store returns the job store. Valid after UseDatabase and Start.
func (a *App) Store() jobs.Store {
	if a.db == nil || a.db.DB() == nil {
		return nil
	}
	return gormstore.New(a.db.DB())
}

// Blobs returns the blob store. Valid after UseStorage and Start.
func (a *App) Blobs() storage.Storage {
	if a.blobs == nil {
		return nil
	}
	return a.blobs.Storage()
}

// Queue returns the job queue. Valid after UseQueue and Start.
func (a *App) Queue() queue.Queue {
	if a.queue == nil {
		return nil
	}
	return a.queue.q
}

// Runner builds the pipeline runner once, against the started store and
// blob store.
func (a *App) Runner() (*pipeline.Runner, error) {
	if a.runner != nil {
		return a.runner, nil
	}
	r, err := a.buildRunner(a.Store())
	if err != nil {
		return nil, err
	}
	a.runner = r
	return r, nil
}

func (a *App) buildRunner(store jobs.Store) (*pipeline.Runner, error) {
	if store == nil || a.Blobs() == nil {
		return nil, fmt.Errorf("app: runner needs a started database and storage")
	}
	models, err := a.Models()
	if err != nil {
		return nil, err
	}
	seg, err := segmenter.New()
	if err != nil {
		return nil, err
	}
	metrics, err := observability.NewPipelineMetrics(observability.Meter())
	if err != nil {
		return nil, err
	}
	r, err := pipeline.New(pipeline.Deps{
		Store:       store,
		Blobs:       a.Blobs(),
		Transcriber: models.Transcriber,
		Summarizer:  models.Summarizer,
		Classifier:  models.Classifier,
		Segmenter:   seg,
		Metrics:     metrics,
		Log:         a.Log,
	}, a.Cfg.Pipeline)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Models returns the model adapters: overrides from WithModels first, then
// the configured provider chains.
func (a *App) Models() (Models, error) {
	var m Models
	if a.models != nil {
		m = *a.models
	}
	if m.Transcriber == nil {
		providers, err := a.transcriptionProviders()
		if err != nil {
			return m, err
		}
		m.Transcriber = inference.NewProviderTranscriber(providers, a.Cfg.Transcription.Language)
	}
	if m.Summarizer == nil || m.Classifier == nil {
		providers, err := a.llmProviders()
		if err != nil {
			return m, err
		}
		if m.Summarizer == nil {
			m.Summarizer = inference.NewLLMSummarizer(providers, a.tokenClipper(), a.Cfg.LLM.InputBudget)
		}
		if m.Classifier == nil {
			m.Classifier = inference.NewLLMClassifier(providers)
		}
	}
	return m, nil
}

func (a *App) transcriptionProviders() (*provider.Manager[transcription.Provider], error) {
	cfg := a.Cfg.Transcription
	reg := provider.NewRegistry[transcription.Provider]()
	for _, name := range cfg.Providers {
		var (
			p   transcription.Provider
			err error
		)
		switch name {
		case whisper.ProviderName:
			p, err = whisper.NewProvider(cfg.Whisper)
		case transcribeopenai.ProviderName:
			p, err = transcribeopenai.NewProvider(cfg.OpenAI)
		default:
			err = fmt.Errorf("unknown transcription provider %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("transcription provider %s: %w", name, err)
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return newManager(reg, cfg.Providers, cfg.Breaker, a.Log), nil
}

func (a *App) llmProviders() (*provider.Manager[llm.Provider], error) {
	cfg := a.Cfg.LLM
	reg := provider.NewRegistry[llm.Provider]()
	for _, name := range cfg.Providers {
		var (
			p   llm.Provider
			err error
		)
		switch name {
		case ollama.ProviderName:
			p, err = ollama.NewProvider(cfg.Ollama)
		case llmopenai.ProviderName:
			p, err = llmopenai.NewProvider(cfg.OpenAI)
		default:
			err = fmt.Errorf("unknown llm provider %q", name)
		}
		if err != nil {
			return nil, fmt.Errorf("llm provider %s: %w", name, err)
		}
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return newManager(reg, cfg.Providers, cfg.Breaker, a.Log), nil
}

func newManager[T provider.Provider](reg *provider.Registry[T], order []string, breaker resilience.Config, log *logger.Logger) *provider.Manager[T] {
	m := provider.NewManager(reg, order, log)
	if breaker.Enabled {
		m.WithBreakers(breaker)
	}
	return m
}

// tokenClipper falls back to word counting when the BPE table cannot load.
func (a *App) tokenClipper() inference.TokenClipper {
	if a.Cfg.LLM.Tokenizer == TokenizerWords {
		return inference.WordClipper{}
	}
	c, err := inference.NewTiktokenClipper()
	if err != nil {
		a.Log.Warn("tiktoken unavailable, clipping by words", logger.Fields(logger.FieldError, err.Error()))
		return inference.WordClipper{}
	}
	return c
}

// StartWorker registers a worker that feeds queued ids to the runner. Call
// it from an OnConfigure callback; the worker starts with the late components.
func (a *App) StartWorker(context.Context) error {
	q := a.Queue()
	if q == nil {
		return fmt.Errorf("app: worker needs a started queue")
	}
	r, err := a.Runner()
	if err != nil {
		return err
	}
	return a.Components.Register(&workerComponent{
		w:   worker.New(q, r, a.Cfg.Worker, a.Log),
		cfg: a.Cfg.Worker,
	})
}

// Server builds the HTTP server with the standard middleware and system
// endpoints. Readiness reflects every registered component.
func (a *App) Server() (*server.Server, error) {
	if a.server != nil {
		return a.server, nil
	}
	metrics, err := observability.NewHTTPMetrics(observability.Meter())
	if err != nil {
		return nil, err
	}
	s := server.New(a.Cfg.Server, a.Log)
	s.ApplyMiddleware(metrics)
	s.RegisterSystemEndpoints(a.Cfg.Name, a.Components.HealthAll)
	a.server = s
	return s, nil
}

// MountIntake registers the /uploads API on the server and the server as a
// late component. Bearer auth guards the routes when auth.enabled is set.
func (a *App) MountIntake(context.Context) error {
	store, blobs, q := a.Store(), a.Blobs(), a.Queue()
	if store == nil || blobs == nil || q == nil {
		return fmt.Errorf("app: intake needs a started database, storage and queue")
	}
	s, err := a.Server()
	if err != nil {
		return err
	}
	svc := intake.NewService(store, blobs, q, a.Cfg.Intake, a.Log)
	var mw []gin.HandlerFunc
	if a.Cfg.Auth.Enabled {
		mw = append(mw, middleware.BearerAuth(a.Cfg.Auth))
	}
	intake.NewHandler(svc).Register(s.Engine(), mw...)
	return a.Components.Register(server.NewComponent(s))
}
