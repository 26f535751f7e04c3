package jobs

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no job has the requested id.
	ErrNotFound = errors.New("jobs: job not found")
	// ErrInvalidTransition means the update would move a job backwards or out of a terminal state.
	ErrInvalidTransition = errors.New("jobs: invalid status transition")
)

// TransitionError carries the statuses of a rejected update.
type TransitionError struct {
	JobID string
	From  Status
	To    Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("jobs: job %s cannot move from %s to %s", e.JobID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Store is the durable job record store. Implementations must tolerate
// concurrent calls for different job ids.
type Store interface {
	// Create inserts a new job. The job must be pending.
	Create(ctx context.Context, job *Job) error

	// Get returns the job or an error matching ErrNotFound.
	Get(ctx context.Context, id string) (*Job, error)

	// Update applies u to the job. A transition not allowed by the lifecycle
	// fails with ErrInvalidTransition and changes nothing.
	Update(ctx context.Context, id string, u Update) error

	// InsertSegments appends segments to the job in one batch.
	InsertSegments(ctx context.Context, id string, segments []Segment) error

	// Segments returns the job's segments in transcript order.
	Segments(ctx context.Context, id string) ([]Segment, error)

	// List returns jobs newest first.
	List(ctx context.Context, f Filter) ([]Job, error)

	// Atomic runs fn against a store whose writes commit together or not at all.
	Atomic(ctx context.Context, fn func(Store) error) error
}

// Validate checks a job before it is created.
func (j *Job) Validate() error {
	switch {
	case j.ID == "":
		return errors.New("jobs: id is required")
	case j.StoragePath == "":
		return errors.New("jobs: storage_path is required")
	case j.Status != StatusPending:
		return fmt.Errorf("jobs: new jobs must be pending, got %q", j.Status)
	}
	return nil
}

// Validate checks an update before it is applied.
func (u Update) Validate() error {
	if !u.Status.Valid() {
		return fmt.Errorf("jobs: invalid status %q", u.Status)
	}
	if u.Status == StatusPending {
		return fmt.Errorf("jobs: cannot move a job back to pending")
	}
	return nil
}
