// Package pipeline runs one upload job end to end: fetch and claim the job,
// download its audio, transcribe, summarize, segment and classify, then
// commit the results or mark the job failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/audiolens/errors"
	"github.com/kbukum/audiolens/inference"
	"github.com/kbukum/audiolens/jobs"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/observability"
	"github.com/kbukum/audiolens/segmenter"
	"github.com/kbukum/audiolens/storage"
)

// Config holds the run settings.
type Config struct {
	ScratchDir string                 `mapstructure:"scratch_dir"`
	Labels     []string               `mapstructure:"labels"`
	Bounds     inference.LengthBounds `mapstructure:"summary"`
}

func (c *Config) ApplyDefaults() {
	if c.ScratchDir == "" {
		c.ScratchDir = os.TempDir()
	}
	if len(c.Labels) == 0 {
		c.Labels = append([]string(nil), inference.DefaultLabels...)
	}
	if c.Bounds == (inference.LengthBounds{}) {
		c.Bounds = inference.DefaultBounds
	}
}

func (c *Config) Validate() error {
	if len(c.Labels) == 0 {
		return errors.New("pipeline.labels must not be empty")
	}
	seen := make(map[string]bool, len(c.Labels))
	for _, l := range c.Labels {
		if l == "" {
			return errors.New("pipeline.labels must not contain empty labels")
		}
		if seen[l] {
			return fmt.Errorf("pipeline.labels contains %q twice", l)
		}
		seen[l] = true
	}
	return c.Bounds.Validate()
}

// Deps are the collaborators of a Runner. Metrics may be nil.
type Deps struct {
	Store       jobs.Store
	Blobs       storage.Storage
	Transcriber inference.Transcriber
	Summarizer  inference.Summarizer
	Classifier  inference.Classifier
	Segmenter   segmenter.Segmenter
	Metrics     *observability.PipelineMetrics
	Log         *logger.Logger
}

func (d Deps) validate() error {
	switch {
	case d.Store == nil:
		return errors.New("pipeline: store is required")
	case d.Blobs == nil:
		return errors.New("pipeline: blob storage is required")
	case d.Transcriber == nil:
		return errors.New("pipeline: transcriber is required")
	case d.Summarizer == nil:
		return errors.New("pipeline: summarizer is required")
	case d.Classifier == nil:
		return errors.New("pipeline: classifier is required")
	case d.Segmenter == nil:
		return errors.New("pipeline: segmenter is required")
	}
	return nil
}

// Runner executes jobs. It holds no per-job state and may be shared by
// concurrent workers.
type Runner struct {
	deps Deps
	cfg  Config
	log  *logger.Logger
}

func New(deps Deps, cfg Config) (*Runner, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{deps: deps, cfg: cfg, log: log.WithComponent("pipeline")}, nil
}

// Run executes one attempt of jobID. It returns nil once the job reached a
// terminal state, including failed. An error means the job was not found or
// a status write did not persist.
func (r *Runner) Run(ctx context.Context, jobID string) error {
	_, err := r.Execute(ctx, jobID)
	return err
}

// Execute is Run with a report of how the attempt ended.
func (r *Runner) Execute(ctx context.Context, jobID string) (*Report, error) {
	start := time.Now()
	ctx = logger.ContextWithJobID(ctx, jobID)
	ctx, span := observability.StartSpan(ctx, "pipeline.run", attribute.String(observability.AttrJobID, jobID))
	log := r.log.WithContext(ctx)
	report := &Report{JobID: jobID}

	finish := func(err error) (*Report, error) {
		report.Duration = time.Since(start)
		status := string(report.Status)
		if status == "" {
			status = "aborted"
		}
		r.deps.Metrics.RecordRun(ctx, status, report.Duration, report.Segments)
		span.SetAttributes(attribute.String(observability.AttrStatus, status))
		observability.EndSpan(span, err)
		return report, err
	}

	state := &State{}
	if err := r.stage(ctx, StageFetch, func(ctx context.Context) error { return r.fetch(ctx, jobID, state) }); err != nil {
		report.Stage, report.Err = StageFetch, err
		log.Error("run aborted", logger.Fields(logger.FieldStage, StageFetch, logger.FieldError, err.Error()))
		return finish(err)
	}
	if state.Job.Status.Terminal() {
		report.Status, report.Skipped = state.Job.Status, true
		log.Info("job already finished, skipping", logger.Fields(logger.FieldStatus, state.Job.Status))
		return finish(nil)
	}

	runErr := r.process(ctx, state)
	if runErr == nil {
		report.Status = jobs.StatusCompleted
		report.Segments = len(state.Segments)
		log.Info("job completed", logger.Fields("segments", len(state.Segments), logger.FieldDuration, time.Since(start).Milliseconds()))
		return finish(nil)
	}

	report.Stage, report.Err = StageOf(runErr), runErr
	log.Error("job failed", logger.Fields(logger.FieldStage, report.Stage, logger.FieldError, runErr.Error()))
	if err := r.stage(ctx, StageFail, func(ctx context.Context) error { return r.fail(ctx, state) }); err != nil {
		log.Error("could not mark job failed", logger.Fields(logger.FieldError, err.Error()))
		return finish(err)
	}
	report.Status = jobs.StatusFailed
	return finish(nil)
}

// process runs download through commit. The scratch file is removed before
// it returns.
func (r *Runner) process(ctx context.Context, st *State) error {
	if err := r.stage(ctx, StageDownload, func(ctx context.Context) error { return r.download(ctx, st) }); err != nil {
		return err
	}
	defer r.cleanup(st)

	steps := []struct {
		stage Stage
		fn    func(context.Context, *State) error
	}{
		{StageTranscribe, r.transcribe},
		{StageSummarize, r.summarize},
		{StageClassify, r.classify},
		{StageCommit, r.commit},
	}
	for _, s := range steps {
		if err := r.stage(ctx, s.stage, func(ctx context.Context) error { return s.fn(ctx, st) }); err != nil {
			return err
		}
	}
	return nil
}

// stage wraps fn with a span, timing and the stage error type.
func (r *Runner) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := observability.StartSpan(ctx, "pipeline."+string(stage),
		attribute.String(observability.AttrStage, string(stage)))
	start := time.Now()
	err := fn(ctx)
	r.deps.Metrics.RecordStage(ctx, string(stage), time.Since(start))
	if err != nil {
		err = stageErr(stage, err)
		r.deps.Metrics.RecordStageError(ctx, string(stage), string(ErrorKind(err)))
	}
	observability.EndSpan(span, err)
	return err
}

func (r *Runner) fetch(ctx context.Context, jobID string, st *State) error {
	job, err := r.deps.Store.Get(ctx, jobID)
	if errors.Is(err, jobs.ErrNotFound) {
		return apperrors.JobNotFound(jobID).WithCause(err)
	}
	if err != nil {
		return apperrors.DatabaseError(err).WithDetail("job_id", jobID)
	}
	st.Job = job
	if job.Status.Terminal() {
		return nil
	}
	if err := r.deps.Store.Update(ctx, jobID, jobs.Update{Status: jobs.StatusProcessing}); err != nil {
		return apperrors.StoreWriteFailure("claim", err)
	}
	st.Job.Status = jobs.StatusProcessing
	return nil
}

// download copies the blob into a fresh scratch file. A partial file is
// removed before returning an error.
func (r *Runner) download(ctx context.Context, st *State) error {
	path := st.Job.StoragePath
	src, err := r.deps.Blobs.Download(ctx, path)
	if err != nil {
		return apperrors.StorageFailure(path, err)
	}
	defer src.Close()

	f, err := os.CreateTemp(r.cfg.ScratchDir, "audiolens-*"+filepath.Ext(path))
	if err != nil {
		return apperrors.StorageFailure(path, fmt.Errorf("create scratch file: %w", err))
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(f.Name())
		return apperrors.StorageFailure(path, err)
	}
	st.ScratchPath = f.Name()
	r.log.Debug("audio downloaded", logger.Fields(logger.FieldJobID, st.Job.ID, logger.FieldStoragePath, path, "bytes", n))
	return nil
}

func (r *Runner) cleanup(st *State) {
	if st.ScratchPath == "" {
		return
	}
	if err := os.Remove(st.ScratchPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.Warn("scratch file not removed", logger.Fields(logger.FieldJobID, st.Job.ID, "path", st.ScratchPath, logger.FieldError, err.Error()))
		return
	}
	st.ScratchPath = ""
}

func (r *Runner) transcribe(ctx context.Context, st *State) error {
	t, err := r.deps.Transcriber.Transcribe(ctx, st.ScratchPath)
	if err != nil {
		return apperrors.ModelFailure("transcriber", err)
	}
	if t != nil {
		st.Transcript = t.Text
	}
	return nil
}

func (r *Runner) summarize(ctx context.Context, st *State) error {
	summary, err := r.deps.Summarizer.Summarize(ctx, st.Transcript, r.cfg.Bounds)
	if err != nil {
		return apperrors.ModelFailure("summarizer", err)
	}
	st.Summary = summary
	return nil
}

func (r *Runner) classify(ctx context.Context, st *State) error {
	sentences := r.deps.Segmenter.Segment(st.Transcript)
	segments := make([]jobs.Segment, 0, len(sentences))
	for i, sentence := range sentences {
		ranked, err := r.deps.Classifier.Classify(ctx, sentence, r.cfg.Labels)
		if err != nil {
			return apperrors.ModelFailure("classifier", err).WithDetail("seq", i)
		}
		if len(ranked) == 0 {
			return apperrors.ModelFailure("classifier", inference.ErrEmptyRanking).WithDetail("seq", i)
		}
		segments = append(segments, jobs.Segment{
			JobID:      st.Job.ID,
			Seq:        i,
			Text:       sentence,
			TopicLabel: ranked[0],
		})
	}
	st.Segments = segments
	return nil
}

// commit writes segments and the completed job in one transaction. The
// writes outlive cancellation of ctx so a finished run is never lost.
func (r *Runner) commit(ctx context.Context, st *State) error {
	ctx = context.WithoutCancel(ctx)
	transcript, summary := st.Transcript, st.Summary
	err := r.deps.Store.Atomic(ctx, func(tx jobs.Store) error {
		if len(st.Segments) > 0 {
			if err := tx.InsertSegments(ctx, st.Job.ID, st.Segments); err != nil {
				return err
			}
		}
		return tx.Update(ctx, st.Job.ID, jobs.Update{
			Status:     jobs.StatusCompleted,
			Transcript: &transcript,
			Summary:    &summary,
		})
	})
	if err != nil {
		return apperrors.StoreWriteFailure("commit", err)
	}
	return nil
}

// fail moves the job to failed. The run's error is only logged. Like commit
// it ignores cancellation of ctx: a cancelled run still ends failed.
func (r *Runner) fail(ctx context.Context, st *State) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.deps.Store.Update(ctx, st.Job.ID, jobs.Update{Status: jobs.StatusFailed}); err != nil {
		return apperrors.StoreWriteFailure("fail", err)
	}
	return nil
}
