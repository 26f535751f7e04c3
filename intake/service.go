// Package intake accepts audio uploads: it hands out storage paths, records
// jobs as pending, enqueues their ids and serves job results.
package intake

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"path"
	"strings"

	apperrors "github.com/kbukum/audiolens/errors"
	"github.com/kbukum/audiolens/jobs"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/queue"
	"github.com/kbukum/audiolens/storage"
	"github.com/kbukum/audiolens/validation"
)

// NotifyRequest reports a blob the client uploaded itself.
type NotifyRequest struct {
	StoragePath string `json:"storage_path" validate:"required,storagepath"`
}

// ListQuery filters GET /uploads.
type ListQuery struct {
	Status string `form:"status" validate:"omitempty,jobstatus"`
	Limit  int    `form:"limit" validate:"min=0,max=500"`
}

// Initiation is where the client should put its upload.
type Initiation struct {
	StoragePath string `json:"storage_path"`
	UploadURL   string `json:"upload_url,omitempty"`
}

// Detail is a job with its segments.
type Detail struct {
	*jobs.Job
	Segments []jobs.Segment `json:"segments"`
	AudioURL string         `json:"audio_url,omitempty"`
}

// Service implements the intake operations.
type Service struct {
	store jobs.Store
	blobs storage.Storage
	queue queue.Queue
	cfg   Config
	log   *logger.Logger
}

func NewService(store jobs.Store, blobs storage.Storage, q queue.Queue, cfg Config, log *logger.Logger) *Service {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, blobs: blobs, queue: q, cfg: cfg, log: log.WithComponent("intake")}
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Initiate reserves a fresh storage path for a client-side upload.
func (s *Service) Initiate(ctx context.Context) (*Initiation, error) {
	p, err := newStoragePath(".mp3")
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := &Initiation{StoragePath: p}
	if u, err := s.blobs.URL(ctx, p); err == nil {
		out.UploadURL = u
	}
	return out, nil
}

// Notify records the job for an uploaded blob and enqueues it.
func (s *Service) Notify(ctx context.Context, req NotifyRequest) (*jobs.Job, error) {
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	return s.submit(ctx, req.StoragePath)
}

// Upload stores the audio read from r under a fresh path that keeps the
// extension of fileName, then records and enqueues the job. size is the
// declared length, or -1 when unknown.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader, size int64) (*jobs.Job, error) {
	if err := validation.New().
		Required("file", fileName).
		Extension("file", fileName, s.cfg.AllowedExtensions).
		Check(size != 0, "file", "must not be empty").
		Err(); err != nil {
		return nil, err
	}
	if size > s.cfg.MaxUploadBytes {
		return nil, apperrors.TooLarge(s.cfg.MaxUploadBytes)
	}

	p, err := newStoragePath(strings.ToLower(path.Ext(fileName)))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	counter := &countingReader{r: io.LimitReader(r, s.cfg.MaxUploadBytes+1)}
	if err := s.blobs.Upload(ctx, p, counter); err != nil {
		return nil, apperrors.StorageFailure(p, err)
	}
	if counter.n > s.cfg.MaxUploadBytes || counter.n == 0 {
		if err := s.blobs.Delete(ctx, p); err != nil {
			s.log.Warn("rejected upload not removed", logger.Fields(logger.FieldStoragePath, p, logger.FieldError, err.Error()))
		}
		if counter.n == 0 {
			return nil, apperrors.InvalidInput("file", "file is empty")
		}
		return nil, apperrors.TooLarge(s.cfg.MaxUploadBytes)
	}
	s.log.Debug("audio stored", logger.Fields(logger.FieldStoragePath, p, "bytes", counter.n))
	return s.submit(ctx, p)
}

// submit creates the pending job and enqueues its id. A job whose enqueue
// failed stays pending and can be enqueued again by id.
func (s *Service) submit(ctx context.Context, storagePath string) (*jobs.Job, error) {
	job := jobs.New(storagePath)
	if err := s.store.Create(ctx, job); err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	log := s.log.WithContext(logger.ContextWithJobID(ctx, job.ID))
	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		log.Error("job recorded but not enqueued", logger.Fields(logger.FieldError, err.Error()))
		return nil, apperrors.ServiceUnavailable("queue").WithCause(err).WithDetail("upload_id", job.ID)
	}
	log.Info("upload recorded, processing queued", logger.Fields(logger.FieldStoragePath, storagePath))
	return job, nil
}

// Get returns the job, its segments in transcript order and a link to the
// audio. The link is signed when the backend supports it.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	job, err := s.store.Get(ctx, id)
	if errors.Is(err, jobs.ErrNotFound) {
		return nil, apperrors.NotFound("upload", id)
	}
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	segments, err := s.store.Segments(ctx, id)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if segments == nil {
		segments = []jobs.Segment{}
	}
	return &Detail{Job: job, Segments: segments, AudioURL: s.audioURL(ctx, job.StoragePath)}, nil
}

func (s *Service) audioURL(ctx context.Context, p string) string {
	var (
		u   string
		err error
	)
	if signer, ok := s.blobs.(storage.SignedURLProvider); ok {
		u, err = signer.SignedURL(ctx, p, s.cfg.URLExpiry)
	} else {
		u, err = s.blobs.URL(ctx, p)
	}
	if err != nil {
		s.log.Warn("audio url unavailable", logger.Fields(logger.FieldStoragePath, p, logger.FieldError, err.Error()))
		return ""
	}
	return u
}

// List returns recent jobs, newest first.
func (s *Service) List(ctx context.Context, q ListQuery) ([]jobs.Job, error) {
	if err := validation.Validate(q); err != nil {
		return nil, err
	}
	list, err := s.store.List(ctx, jobs.Filter{Status: jobs.Status(q.Status), Limit: q.Limit})
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if list == nil {
		list = []jobs.Job{}
	}
	return list, nil
}

// newStoragePath returns audio_<16 hex chars><ext>.
func newStoragePath(ext string) (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "audio_" + hex.EncodeToString(b[:]) + ext, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
