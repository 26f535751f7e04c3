// Package jobs holds the upload job model and the record store contract the
// intake API and the pipeline share.
package jobs

import (
	"path"
	"time"

	"github.com/google/uuid"
)

// Status is a job's position in its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// predecessors lists, for each status, the statuses it may be entered from.
// processing may be re-entered so a redelivered job can be claimed again
// after its previous worker died mid-run.
var predecessors = map[Status][]Status{
	StatusProcessing: {StatusPending, StatusProcessing},
	StatusCompleted:  {StatusProcessing},
	StatusFailed:     {StatusPending, StatusProcessing},
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Predecessors returns the statuses from which s may be entered. Pending has none.
func (s Status) Predecessors() []Status {
	return predecessors[s]
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, p := range predecessors[to] {
		if p == from {
			return true
		}
	}
	return false
}

// Job is one uploaded audio file and its analysis results.
type Job struct {
	ID          string    `json:"id"`
	StoragePath string    `json:"storage_path"`
	FileName    string    `json:"file_name"`
	Status      Status    `json:"status"`
	Transcript  *string   `json:"transcript"`
	Summary     *string   `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New returns a pending job for the blob at storagePath. The file name is the
// last path element.
func New(storagePath string) *Job {
	return &Job{
		ID:          uuid.NewString(),
		StoragePath: storagePath,
		FileName:    path.Base(storagePath),
		Status:      StatusPending,
	}
}

// Segment is one transcript sentence and the topic assigned to it.
type Segment struct {
	ID         int64     `json:"id"`
	JobID      string    `json:"job_id"`
	Seq        int       `json:"seq"`
	Text       string    `json:"segment_text"`
	TopicLabel string    `json:"topic_label"`
	CreatedAt  time.Time `json:"created_at"`
}

// Update is a partial job update. Status is required; nil fields are left as they are.
type Update struct {
	Status     Status
	Transcript *string
	Summary    *string
}

// Filter narrows List. A zero Filter returns the newest jobs of any status.
type Filter struct {
	Status Status
	Limit  int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// EffectiveLimit clamps Limit into [1, MaxListLimit], defaulting to DefaultListLimit.
func (f Filter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	}
	return f.Limit
}
