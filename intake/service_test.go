package intake

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kbukum/audiolens/errors"
	"github.com/kbukum/audiolens/jobs"
	"github.com/kbukum/audiolens/jobs/memstore"
	"github.com/kbukum/audiolens/queue"
	"github.com/kbukum/audiolens/queue/memqueue"
	"github.com/kbukum/audiolens/storage/memory"
)

type fixture struct {
	store *memstore.Store
	blobs *memory.Storage
	queue *memqueue.Queue
	svc   *Service
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{store: memstore.New(), blobs: memory.New(), queue: memqueue.New(16)}
	f.svc = NewService(f.store, f.blobs, f.queue, cfg, nil)
	return f
}

func (f *fixture) received(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err := f.queue.Receive(ctx)
	require.NoError(t, err)
	return d.JobID()
}

func code(t *testing.T, err error) apperrors.ErrorCode {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	return appErr.Code
}

var storagePathRe = regexp.MustCompile(`^audio_[0-9a-f]{16}\.mp3$`)

func TestInitiate(t *testing.T) {
	f := newFixture(t, Config{})
	a, err := f.svc.Initiate(context.Background())
	require.NoError(t, err)
	b, err := f.svc.Initiate(context.Background())
	require.NoError(t, err)

	assert.Regexp(t, storagePathRe, a.StoragePath)
	assert.NotEqual(t, a.StoragePath, b.StoragePath)
	assert.Equal(t, "memory://"+a.StoragePath, a.UploadURL)
}

func TestNotifyCreatesPendingJobAndEnqueues(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	job, err := f.svc.Notify(ctx, NotifyRequest{StoragePath: "calls/audio_0123456789abcdef.mp3"})
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, job.Status)
	assert.Equal(t, "audio_0123456789abcdef.mp3", job.FileName)

	stored, err := f.store.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, stored.Status)
	assert.Equal(t, "calls/audio_0123456789abcdef.mp3", stored.StoragePath)
	assert.Equal(t, job.ID, f.received(t))
}

func TestNotifyRejectsBadPaths(t *testing.T) {
	f := newFixture(t, Config{})
	for _, p := range []string{"", "../etc/passwd", "/abs.mp3"} {
		_, err := f.svc.Notify(context.Background(), NotifyRequest{StoragePath: p})
		require.Error(t, err, p)
		assert.Equal(t, apperrors.ErrCodeInvalidInput, code(t, err))
	}
	assert.Equal(t, 0, f.queue.Len())
}

type brokenQueue struct{ queue.Queue }

func (brokenQueue) Enqueue(context.Context, string) error { return errors.New("broker down") }

func TestNotifyEnqueueFailureKeepsPendingJob(t *testing.T) {
	store := memstore.New()
	svc := NewService(store, memory.New(), brokenQueue{}, Config{}, nil)

	_, err := svc.Notify(context.Background(), NotifyRequest{StoragePath: "audio_1.mp3"})
	require.Error(t, err)
	appErr, _ := apperrors.AsAppError(err)
	assert.Equal(t, apperrors.ErrCodeServiceUnavailable, appErr.Code)
	id, _ := appErr.Details["upload_id"].(string)
	require.NotEmpty(t, id)

	job, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusPending, job.Status)
}

func TestUploadStoresBlobWithExtension(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	data := []byte("RIFF....WAVEfmt ")

	job, err := f.svc.Upload(ctx, "Meeting.WAV", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(job.StoragePath, ".wav"), job.StoragePath)
	assert.True(t, strings.HasPrefix(job.StoragePath, "audio_"), job.StoragePath)

	ok, err := f.blobs.Exists(ctx, job.StoragePath)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, job.ID, f.received(t))
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t, Config{MaxUploadBytes: 8})
	ctx := context.Background()

	tests := []struct {
		name string
		file string
		data string
		size int64
		want apperrors.ErrorCode
	}{
		{"bad extension", "notes.txt", "hello", 5, apperrors.ErrCodeInvalidInput},
		{"no name", "", "hello", 5, apperrors.ErrCodeInvalidInput},
		{"declared too large", "a.mp3", "0123456789", 10, apperrors.ErrCodeTooLarge},
		{"streamed too large", "a.mp3", "0123456789", -1, apperrors.ErrCodeTooLarge},
		{"empty", "a.mp3", "", -1, apperrors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(ctx, tt.file, strings.NewReader(tt.data), tt.size)
			require.Error(t, err)
			assert.Equal(t, tt.want, code(t, err))
		})
	}

	left, err := f.blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, left, "rejected uploads must not leave blobs behind")
	assert.Equal(t, 0, f.queue.Len())
}

func TestGetReturnsSegmentsInOrder(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	job, err := f.svc.Notify(ctx, NotifyRequest{StoragePath: "abc.mp3"})
	require.NoError(t, err)
	require.NoError(t, f.store.Update(ctx, job.ID, jobs.Update{Status: jobs.StatusProcessing}))
	require.NoError(t, f.store.InsertSegments(ctx, job.ID, []jobs.Segment{
		{JobID: job.ID, Seq: 0, Text: "We had a great product demo today.", TopicLabel: "Product Feedback"},
		{JobID: job.ID, Seq: 1, Text: "The pricing seems too high.", TopicLabel: "Pricing Concerns"},
	}))

	d, err := f.svc.Get(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, d.Segments, 2)
	assert.Equal(t, 0, d.Segments[0].Seq)
	assert.Equal(t, "Pricing Concerns", d.Segments[1].TopicLabel)
	assert.Equal(t, "memory://abc.mp3", d.AudioURL)
}

type signingStorage struct{ *memory.Storage }

func (signingStorage) SignedURL(_ context.Context, p string, expiry time.Duration) (string, error) {
	return "https://signed.example/" + p + "?ttl=" + expiry.String(), nil
}

func TestGetPrefersSignedURL(t *testing.T) {
	store := memstore.New()
	svc := NewService(store, signingStorage{memory.New()}, memqueue.New(1), Config{URLExpiry: time.Minute}, nil)
	job, err := svc.Notify(context.Background(), NotifyRequest{StoragePath: "x.mp3"})
	require.NoError(t, err)

	d, err := svc.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/x.mp3?ttl=1m0s", d.AudioURL)
	assert.Empty(t, d.Segments)
}

func TestGetUnknown(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.svc.Get(context.Background(), "missing")
	assert.Equal(t, apperrors.ErrCodeNotFound, code(t, err))
}

func TestList(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	a, err := f.svc.Notify(ctx, NotifyRequest{StoragePath: "a.mp3"})
	require.NoError(t, err)
	_, err = f.svc.Notify(ctx, NotifyRequest{StoragePath: "b.mp3"})
	require.NoError(t, err)
	require.NoError(t, f.store.Update(ctx, a.ID, jobs.Update{Status: jobs.StatusFailed}))

	all, err := f.svc.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := f.svc.List(ctx, ListQuery{Status: "failed"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, a.ID, failed[0].ID)

	_, err = f.svc.List(ctx, ListQuery{Status: "done"})
	assert.Equal(t, apperrors.ErrCodeInvalidInput, code(t, err))
}
