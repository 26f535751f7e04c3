package memqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/audiolens/queue"
)

func TestEnqueueReceiveAck(t *testing.T) {
	q := New(4)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "a"))
	require.NoError(t, q.Enqueue(ctx, "b"))

	d, err := q.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", d.JobID())
	require.NoError(t, d.Ack(ctx))
	assert.Equal(t, []string{"a"}, q.Acked())
}

func TestRequeuePutsIDBack(t *testing.T) {
	q := New(4)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, "a"))
	d, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Requeue(ctx))
	assert.Equal(t, 1, q.Len())
}

func TestReceiveHonoursContext(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose(t *testing.T) {
	q := New(1)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	_, err := q.Receive(context.Background())
	assert.True(t, errors.Is(err, queue.ErrClosed))
	assert.ErrorIs(t, q.Enqueue(context.Background(), "x"), queue.ErrClosed)
}
