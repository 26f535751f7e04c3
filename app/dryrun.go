package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kbukum/audiolens/jobs"
	"github.com/kbukum/audiolens/pipeline"
)

// DryRun is the outcome of a job run whose writes were kept in memory.
type DryRun struct {
	Report   *pipeline.Report
	Job      *jobs.Job
	Segments []jobs.Segment
}

// DryRun runs jobID through the pipeline against the real blob store and
// models, but records status and result writes in memory instead of the
// database. Terminal jobs are re-run from a pending copy.
func (a *App) DryRun(ctx context.Context, jobID string) (*DryRun, error) {
	store := a.Store()
	if store == nil {
		return nil, fmt.Errorf("app: dry run needs a started database")
	}
	rec := newRecordingStore(store)
	r, err := a.buildRunner(rec)
	if err != nil {
		return nil, err
	}
	report, err := r.Execute(ctx, jobID)
	if err != nil {
		return nil, err
	}
	job, segments := rec.snapshot()
	return &DryRun{Report: report, Job: job, Segments: segments}, nil
}

var errReadOnly = errors.New("dry run: store is read-only")

// recordingStore reads jobs from the wrapped store once and applies later
// writes to its own copy, enforcing the same lifecycle rules.
type recordingStore struct {
	base jobs.Store

	mu       sync.Mutex
	job      *jobs.Job
	segments []jobs.Segment
}

var _ jobs.Store = (*recordingStore)(nil)

func newRecordingStore(base jobs.Store) *recordingStore {
	return &recordingStore{base: base}
}

func (s *recordingStore) load(ctx context.Context, id string) (*jobs.Job, error) {
	if s.job != nil && s.job.ID == id {
		return s.job, nil
	}
	j, err := s.base.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Status.Terminal() {
		j.Status = jobs.StatusPending
		j.Transcript, j.Summary = nil, nil
	}
	s.job, s.segments = j, nil
	return j, nil
}

func (s *recordingStore) Create(context.Context, *jobs.Job) error { return errReadOnly }

func (s *recordingStore) Get(ctx context.Context, id string) (*jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *j
	return &cp, nil
}

func (s *recordingStore) Update(ctx context.Context, id string, u jobs.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	j, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !jobs.CanTransition(j.Status, u.Status) {
		return &jobs.TransitionError{JobID: id, From: j.Status, To: u.Status}
	}
	j.Status = u.Status
	if u.Transcript != nil {
		j.Transcript = u.Transcript
	}
	if u.Summary != nil {
		j.Summary = u.Summary
	}
	return nil
}

func (s *recordingStore) InsertSegments(ctx context.Context, id string, segments []jobs.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	s.segments = append(s.segments, segments...)
	return nil
}

func (s *recordingStore) Segments(_ context.Context, id string) ([]jobs.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil || s.job.ID != id {
		return nil, nil
	}
	return append([]jobs.Segment(nil), s.segments...), nil
}

func (s *recordingStore) List(ctx context.Context, f jobs.Filter) ([]jobs.Job, error) {
	return s.base.List(ctx, f)
}

// Atomic runs fn against the recording store itself; a failed fn leaves the
// copy as it was.
func (s *recordingStore) Atomic(_ context.Context, fn func(jobs.Store) error) error {
	s.mu.Lock()
	var saved *jobs.Job
	if s.job != nil {
		cp := *s.job
		saved = &cp
	}
	savedSegs := len(s.segments)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.job, s.segments = saved, s.segments[:savedSegs]
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *recordingStore) snapshot() (*jobs.Job, []jobs.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return nil, nil
	}
	cp := *s.job
	return &cp, append([]jobs.Segment(nil), s.segments...)
}
