// Package storetest is a conformance suite every jobs.Store implementation runs.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/audiolens/jobs"
)

// Run exercises newStore against the lifecycle and persistence rules.
func Run(t *testing.T, newStore func(t *testing.T) jobs.Store) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("CreateRejectsNonPending", func(t *testing.T) { testCreateRejectsNonPending(t, newStore(t)) })
	t.Run("Lifecycle", func(t *testing.T) { testLifecycle(t, newStore(t)) })
	t.Run("TerminalIsFinal", func(t *testing.T) { testTerminalIsFinal(t, newStore(t)) })
	t.Run("ReclaimProcessing", func(t *testing.T) { testReclaimProcessing(t, newStore(t)) })
	t.Run("FailKeepsResultsEmpty", func(t *testing.T) { testFailKeepsResultsEmpty(t, newStore(t)) })
	t.Run("SegmentsInOrder", func(t *testing.T) { testSegmentsInOrder(t, newStore(t)) })
	t.Run("SegmentsRequireJob", func(t *testing.T) { testSegmentsRequireJob(t, newStore(t)) })
	t.Run("AtomicCommits", func(t *testing.T) { testAtomicCommits(t, newStore(t)) })
	t.Run("AtomicRollsBack", func(t *testing.T) { testAtomicRollsBack(t, newStore(t)) })
	t.Run("ListFilters", func(t *testing.T) { testListFilters(t, newStore(t)) })
	t.Run("ConcurrentClaims", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
}

func strPtr(s string) *string { return &s }

func create(t *testing.T, s jobs.Store, path string) *jobs.Job {
	t.Helper()
	j := jobs.New(path)
	require.NoError(t, s.Create(context.Background(), j))
	return j
}

func testCreateAndGet(t *testing.T, s jobs.Store) {
	j := create(t, s, "uploads/audio_abc.mp3")

	got, err := s.Get(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
	assert.Equal(t, "uploads/audio_abc.mp3", got.StoragePath)
	assert.Equal(t, "audio_abc.mp3", got.FileName)
	assert.Equal(t, jobs.StatusPending, got.Status)
	assert.Nil(t, got.Transcript)
	assert.Nil(t, got.Summary)
	assert.False(t, got.CreatedAt.IsZero())
}

func testGetMissing(t *testing.T, s jobs.Store) {
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, jobs.ErrNotFound)

	err = s.Update(context.Background(), "missing", jobs.Update{Status: jobs.StatusProcessing})
	assert.ErrorIs(t, err, jobs.ErrNotFound)
}

func testCreateRejectsNonPending(t *testing.T, s jobs.Store) {
	j := jobs.New("a.mp3")
	j.Status = jobs.StatusCompleted
	assert.Error(t, s.Create(context.Background(), j))
}

func testLifecycle(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	j := create(t, s, "a.mp3")

	require.NoError(t, s.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusProcessing}))
	require.NoError(t, s.Update(ctx, j.ID, jobs.Update{
		Status:     jobs.StatusCompleted,
		Transcript: strPtr("Hello there."),
		Summary:    strPtr("A greeting."),
	}))

	got, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, got.Status)
	require.NotNil(t, got.Transcript)
	assert.Equal(t, "Hello there.", *got.Transcript)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "A greeting.", *got.Summary)
}

func testTerminalIsFinal(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	j := create(t, s, "a.mp3")
	require.NoError(t, s.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusFailed}))

	for _, to := range []jobs.Status{jobs.StatusProcessing, jobs.StatusCompleted, jobs.StatusFailed} {
		err := s.Update(ctx, j.ID, jobs.Update{Status: to})
		assert.ErrorIs(t, err, jobs.ErrInvalidTransition, "failed -> %s", to)
		var te *jobs.TransitionError
		if assert.True(t, errors.As(err, &te)) {
			assert.Equal(t, jobs.StatusFailed, te.From)
		}
	}

	assert.Error(t, s.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusPending}))

	got, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
}

func testReclaimProcessing(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	j := create(t, s, "a.mp3")
	require.NoError(t, s.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusProcessing}))
	assert.NoError(t, s.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusProcessing}))
}

func testFailKeepsResultsEmpty(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	j := create(t, s, "a.mp3")
	require.NoError(t, s.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusProcessing}))
	require.NoError(t, s.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusFailed}))

	got, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Transcript)
	assert.Nil(t, got.Summary)
}

func testSegmentsInOrder(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	j := create(t, s, "a.mp3")

	require.NoError(t, s.InsertSegments(ctx, j.ID, []jobs.Segment{
		{Seq: 0, Text: "Hello there.", TopicLabel: "General Question"},
		{Seq: 1, Text: "How are you?", TopicLabel: "General Question"},
	}))
	require.NoError(t, s.InsertSegments(ctx, j.ID, nil))

	segs, err := s.Segments(ctx, j.ID)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, "Hello there.", segs[0].Text)
	assert.Equal(t, "How are you?", segs[1].Text)
	assert.Equal(t, j.ID, segs[1].JobID)
	assert.NotZero(t, segs[0].ID)

	other, err := s.Segments(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func testSegmentsRequireJob(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	seg := []jobs.Segment{{Seq: 0, Text: "Hello there.", TopicLabel: "General Question"}}

	err := s.InsertSegments(ctx, "missing", seg)
	assert.ErrorIs(t, err, jobs.ErrNotFound)
	assert.ErrorIs(t, s.InsertSegments(ctx, "missing", nil), jobs.ErrNotFound)

	err = s.Atomic(ctx, func(tx jobs.Store) error {
		return tx.InsertSegments(ctx, "missing", seg)
	})
	assert.ErrorIs(t, err, jobs.ErrNotFound)

	segs, err := s.Segments(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, segs)
}

func testAtomicCommits(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	j := create(t, s, "a.mp3")
	require.NoError(t, s.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusProcessing}))

	err := s.Atomic(ctx, func(tx jobs.Store) error {
		if err := tx.InsertSegments(ctx, j.ID, []jobs.Segment{{Seq: 0, Text: "Hi.", TopicLabel: "General Question"}}); err != nil {
			return err
		}
		return tx.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusCompleted, Transcript: strPtr("Hi."), Summary: strPtr("Hi.")})
	})
	require.NoError(t, err)

	got, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCompleted, got.Status)
	segs, err := s.Segments(ctx, j.ID)
	require.NoError(t, err)
	assert.Len(t, segs, 1)
}

func testAtomicRollsBack(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	j := create(t, s, "a.mp3")
	require.NoError(t, s.Update(ctx, j.ID, jobs.Update{Status: jobs.StatusProcessing}))

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(tx jobs.Store) error {
		if err := tx.InsertSegments(ctx, j.ID, []jobs.Segment{{Seq: 0, Text: "Hi.", TopicLabel: "x"}}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	segs, err := s.Segments(ctx, j.ID)
	require.NoError(t, err)
	assert.Empty(t, segs)
	got, err := s.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusProcessing, got.Status)
}

func testListFilters(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	a := create(t, s, "a.mp3")
	create(t, s, "b.mp3")
	require.NoError(t, s.Update(ctx, a.ID, jobs.Update{Status: jobs.StatusFailed}))

	all, err := s.List(ctx, jobs.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	failed, err := s.List(ctx, jobs.Filter{Status: jobs.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, a.ID, failed[0].ID)

	one, err := s.List(ctx, jobs.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func testConcurrentUpdates(t *testing.T, s jobs.Store) {
	ctx := context.Background()
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = create(t, s, "a.mp3").ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- s.Update(ctx, id, jobs.Update{Status: jobs.StatusProcessing})
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
