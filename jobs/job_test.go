package jobs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	j := New("uploads/2024/audio_0123456789abcdef.mp3")
	assert.NotEmpty(t, j.ID)
	assert.Equal(t, "audio_0123456789abcdef.mp3", j.FileName)
	assert.Equal(t, StatusPending, j.Status)
	assert.NoError(t, j.Validate())
	assert.NotEqual(t, j.ID, New("x").ID)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusProcessing, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusPending, false},
		{StatusProcessing, StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, Status("queued").Valid())
	assert.Empty(t, StatusPending.Predecessors())
}

func TestUpdateValidate(t *testing.T) {
	assert.NoError(t, Update{Status: StatusFailed}.Validate())
	assert.Error(t, Update{Status: StatusPending}.Validate())
	assert.Error(t, Update{Status: "done"}.Validate())
}

func TestJobValidate(t *testing.T) {
	assert.Error(t, (&Job{StoragePath: "a", Status: StatusPending}).Validate())
	assert.Error(t, (&Job{ID: "1", Status: StatusPending}).Validate())
	assert.Error(t, (&Job{ID: "1", StoragePath: "a", Status: StatusProcessing}).Validate())
}

func TestTransitionErrorUnwraps(t *testing.T) {
	err := error(&TransitionError{JobID: "j", From: StatusCompleted, To: StatusFailed})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Contains(t, err.Error(), "completed")
}

func TestFilterEffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, Filter{}.EffectiveLimit())
	assert.Equal(t, MaxListLimit, Filter{Limit: 10_000}.EffectiveLimit())
	assert.Equal(t, 7, Filter{Limit: 7}.EffectiveLimit())
}
