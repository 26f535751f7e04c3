package redisqueue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/queue"
	"github.com/kbukum/audiolens/redis"
)

func newQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "", logger.Nop()), mini
}

func TestEnqueueUsesListKey(t *testing.T) {
	q, mini := newQueue(t)
	require.NoError(t, q.Enqueue(context.Background(), "abc123"))

	items, err := mini.List(queue.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123"}, items)
}

func TestReceiveOldestFirst(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(ctx, id))
	}
	for _, want := range []string{"a", "b", "c"} {
		d, err := q.Receive(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, d.JobID())
		require.NoError(t, d.Ack(ctx))
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRequeue(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "a"))
	d, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Requeue(ctx))

	again, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", again.JobID())
}

func TestReceiveStopsOnCancel(t *testing.T) {
	q, _ := newQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := q.Receive(ctx)
	require.Error(t, err)
}

func TestClosed(t *testing.T) {
	q, _ := newQueue(t)
	require.NoError(t, q.Close())
	assert.ErrorIs(t, q.Enqueue(context.Background(), "a"), queue.ErrClosed)
	_, err := q.Receive(context.Background())
	assert.ErrorIs(t, err, queue.ErrClosed)
}
