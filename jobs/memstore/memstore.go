// Package memstore is a process-local jobs.Store used by tests and by the
// CLI's dry-run mode.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/audiolens/jobs"
)

// Store keeps jobs and segments in maps behind one mutex.
type Store struct {
	mu       sync.Mutex
	jobs     map[string]jobs.Job
	segments map[string][]jobs.Segment
	nextSeg  int64
	now      func() time.Time
}

var _ jobs.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		jobs:     map[string]jobs.Job{},
		segments: map[string][]jobs.Segment{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Create(_ context.Context, job *jobs.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("memstore: job %s already exists", job.ID)
	}
	now := s.now()
	job.CreatedAt, job.UpdatedAt = now, now
	s.jobs[job.ID] = *job
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("memstore: %s: %w", id, jobs.ErrNotFound)
	}
	return &j, nil
}

func (s *Store) Update(_ context.Context, id string, u jobs.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(id, u)
}

func (s *Store) update(id string, u jobs.Update) error {
	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("memstore: %s: %w", id, jobs.ErrNotFound)
	}
	if !jobs.CanTransition(j.Status, u.Status) {
		return &jobs.TransitionError{JobID: id, From: j.Status, To: u.Status}
	}
	j.Status = u.Status
	if u.Transcript != nil {
		t := *u.Transcript
		j.Transcript = &t
	}
	if u.Summary != nil {
		sum := *u.Summary
		j.Summary = &sum
	}
	j.UpdatedAt = s.now()
	s.jobs[id] = j
	return nil
}

func (s *Store) InsertSegments(_ context.Context, id string, segments []jobs.Segment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(id, segments)
}

func (s *Store) insert(id string, segments []jobs.Segment) error {
	if _, ok := s.jobs[id]; !ok {
		return fmt.Errorf("memstore: %s: %w", id, jobs.ErrNotFound)
	}
	now := s.now()
	for _, seg := range segments {
		s.nextSeg++
		seg.ID = s.nextSeg
		seg.JobID = id
		seg.CreatedAt = now
		s.segments[id] = append(s.segments[id], seg)
	}
	return nil
}

func (s *Store) Segments(_ context.Context, id string) ([]jobs.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]jobs.Segment(nil), s.segments[id]...)
	sort.SliceStable(out, func(i, k int) bool { return out[i].Seq < out[k].Seq })
	return out, nil
}

func (s *Store) List(_ context.Context, f jobs.Filter) ([]jobs.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []jobs.Job
	for _, j := range s.jobs {
		if f.Status == "" || j.Status == f.Status {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].CreatedAt.Equal(out[k].CreatedAt) {
			return out[i].ID > out[k].ID
		}
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	if limit := f.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Atomic stages writes in a transaction view and applies them only when fn succeeds.
func (s *Store) Atomic(ctx context.Context, fn func(jobs.Store) error) error {
	tx := &txStore{parent: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// validate every staged write before applying any
	for _, op := range tx.ops {
		if err := op.check(s); err != nil {
			return err
		}
	}
	for _, op := range tx.ops {
		if err := op.apply(s); err != nil {
			return err
		}
	}
	return nil
}

type stagedOp struct {
	check func(*Store) error
	apply func(*Store) error
}

// txStore records writes and reads through to the parent.
type txStore struct {
	parent *Store
	ops    []stagedOp
}

func (t *txStore) Create(_ context.Context, job *jobs.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	j := *job
	t.ops = append(t.ops, stagedOp{
		check: func(s *Store) error {
			if _, ok := s.jobs[j.ID]; ok {
				return fmt.Errorf("memstore: job %s already exists", j.ID)
			}
			return nil
		},
		apply: func(s *Store) error {
			now := s.now()
			j.CreatedAt, j.UpdatedAt = now, now
			s.jobs[j.ID] = j
			return nil
		},
	})
	return nil
}

func (t *txStore) Get(ctx context.Context, id string) (*jobs.Job, error) {
	return t.parent.Get(ctx, id)
}

func (t *txStore) Update(_ context.Context, id string, u jobs.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	t.ops = append(t.ops, stagedOp{
		check: func(s *Store) error {
			j, ok := s.jobs[id]
			if !ok {
				return fmt.Errorf("memstore: %s: %w", id, jobs.ErrNotFound)
			}
			if !jobs.CanTransition(j.Status, u.Status) {
				return &jobs.TransitionError{JobID: id, From: j.Status, To: u.Status}
			}
			return nil
		},
		apply: func(s *Store) error { return s.update(id, u) },
	})
	return nil
}

func (t *txStore) InsertSegments(_ context.Context, id string, segments []jobs.Segment) error {
	segs := append([]jobs.Segment(nil), segments...)
	t.ops = append(t.ops, stagedOp{
		check: func(s *Store) error {
			if _, ok := s.jobs[id]; !ok {
				return fmt.Errorf("memstore: %s: %w", id, jobs.ErrNotFound)
			}
			return nil
		},
		apply: func(s *Store) error { return s.insert(id, segs) },
	})
	return nil
}

func (t *txStore) Segments(ctx context.Context, id string) ([]jobs.Segment, error) {
	return t.parent.Segments(ctx, id)
}

func (t *txStore) List(ctx context.Context, f jobs.Filter) ([]jobs.Job, error) {
	return t.parent.List(ctx, f)
}

func (t *txStore) Atomic(_ context.Context, fn func(jobs.Store) error) error {
	return fn(t)
}
