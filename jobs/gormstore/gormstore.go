// Package gormstore implements jobs.Store on the shared GORM connection.
package gormstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/kbukum/audiolens/database"
	"github.com/kbukum/audiolens/jobs"
)

// Migrations holds the Postgres schema, applied by database/migration.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

type jobRow struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)"`
	StoragePath string    `gorm:"not null"`
	FileName    string    `gorm:"not null"`
	Status      string    `gorm:"type:varchar(16);not null;index"`
	Transcript  *string   `gorm:"type:text"`
	Summary     *string   `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
}

func (jobRow) TableName() string { return "uploads" }

type segmentRow struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	UploadID    string `gorm:"type:varchar(64);not null;index:idx_segments_upload_seq,priority:1"`
	Seq         int    `gorm:"not null;index:idx_segments_upload_seq,priority:2"`
	SegmentText string `gorm:"type:text;not null"`
	TopicLabel  string `gorm:"not null"`
	CreatedAt   time.Time
}

func (segmentRow) TableName() string { return "analysis_segments" }

// Models returns the row types for AutoMigrate.
func Models() []interface{} {
	return []interface{}{&jobRow{}, &segmentRow{}}
}

// Store is a jobs.Store backed by GORM. A Store handed to an Atomic callback
// is bound to that transaction.
type Store struct {
	db *database.DB
	tx *gorm.DB
}

var _ jobs.Store = (*Store)(nil)

func New(db *database.DB) *Store {
	return &Store{db: db}
}

func (s *Store) session(ctx context.Context) *gorm.DB {
	if s.tx != nil {
		return s.tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

func (s *Store) Create(ctx context.Context, job *jobs.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	row := toRow(job)
	if err := s.session(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("gormstore: create %s: %w", job.ID, err)
	}
	job.CreatedAt, job.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*jobs.Job, error) {
	var row jobRow
	err := s.session(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("gormstore: %s: %w", id, jobs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: get %s: %w", id, err)
	}
	return fromRow(row), nil
}

// Update guards the write with the allowed predecessor statuses so a racing
// writer cannot move a job out of a terminal state.
func (s *Store) Update(ctx context.Context, id string, u jobs.Update) error {
	if err := u.Validate(); err != nil {
		return err
	}
	values := map[string]interface{}{
		"status":     string(u.Status),
		"updated_at": time.Now().UTC(),
	}
	if u.Transcript != nil {
		values["transcript"] = *u.Transcript
	}
	if u.Summary != nil {
		values["summary"] = *u.Summary
	}

	from := make([]string, 0, len(u.Status.Predecessors()))
	for _, p := range u.Status.Predecessors() {
		from = append(from, string(p))
	}

	res := s.session(ctx).Model(&jobRow{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(values)
	if res.Error != nil {
		return fmt.Errorf("gormstore: update %s: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return &jobs.TransitionError{JobID: id, From: current.Status, To: u.Status}
}

// InsertSegments appends segments to job id. It fails with jobs.ErrNotFound
// when no such job exists.
func (s *Store) InsertSegments(ctx context.Context, id string, segments []jobs.Segment) error {
	var n int64
	if err := s.session(ctx).Model(&jobRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("gormstore: insert segments for %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("gormstore: %s: %w", id, jobs.ErrNotFound)
	}
	if len(segments) == 0 {
		return nil
	}
	rows := make([]segmentRow, len(segments))
	for i, seg := range segments {
		rows[i] = segmentRow{
			UploadID:    id,
			Seq:         seg.Seq,
			SegmentText: seg.Text,
			TopicLabel:  seg.TopicLabel,
		}
	}
	if err := s.session(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("gormstore: insert segments for %s: %w", id, err)
	}
	return nil
}

func (s *Store) Segments(ctx context.Context, id string) ([]jobs.Segment, error) {
	var rows []segmentRow
	if err := s.session(ctx).Where("upload_id = ?", id).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: segments for %s: %w", id, err)
	}
	out := make([]jobs.Segment, len(rows))
	for i, r := range rows {
		out[i] = jobs.Segment{
			ID:         r.ID,
			JobID:      r.UploadID,
			Seq:        r.Seq,
			Text:       r.SegmentText,
			TopicLabel: r.TopicLabel,
			CreatedAt:  r.CreatedAt,
		}
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, f jobs.Filter) ([]jobs.Job, error) {
	q := s.session(ctx).Model(&jobRow{})
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	var rows []jobRow
	if err := q.Order("created_at DESC").Order("id DESC").Limit(f.EffectiveLimit()).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("gormstore: list: %w", err)
	}
	out := make([]jobs.Job, len(rows))
	for i, r := range rows {
		out[i] = *fromRow(r)
	}
	return out, nil
}

func (s *Store) Atomic(ctx context.Context, fn func(jobs.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		return fn(&Store{db: s.db, tx: tx})
	})
}

func toRow(j *jobs.Job) jobRow {
	return jobRow{
		ID:          j.ID,
		StoragePath: j.StoragePath,
		FileName:    j.FileName,
		Status:      string(j.Status),
		Transcript:  j.Transcript,
		Summary:     j.Summary,
	}
}

func fromRow(r jobRow) *jobs.Job {
	return &jobs.Job{
		ID:          r.ID,
		StoragePath: r.StoragePath,
		FileName:    r.FileName,
		Status:      jobs.Status(r.Status),
		Transcript:  r.Transcript,
		Summary:     r.Summary,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
