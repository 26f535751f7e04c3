package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/resilience"
)

type fake struct {
	name string
	up   bool
}

func (f *fake) Name() string                       { return f.name }
func (f *fake) IsAvailable(_ context.Context) bool { return f.up }

func registry(t *testing.T, ps ...*fake) *Registry[*fake] {
	t.Helper()
	r := NewRegistry[*fake]()
	for _, p := range ps {
		require.NoError(t, r.Register(p))
	}
	return r
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := registry(t, &fake{name: "whisper"})
	assert.Error(t, r.Register(&fake{name: "whisper"}))
	_, ok := r.Get("whisper")
	assert.True(t, ok)
	assert.Equal(t, []string{"whisper"}, r.Names())
}

func TestManagerSingleProviderSkipsProbe(t *testing.T) {
	m := NewManager(registry(t, &fake{name: "ollama", up: false}), []string{"ollama"}, logger.Nop())
	p, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestManagerFallsBackInOrder(t *testing.T) {
	r := registry(t, &fake{name: "whisper", up: false}, &fake{name: "openai", up: true})
	m := NewManager(r, []string{"whisper", "openai"}, logger.Nop())
	p, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestManagerNoneAvailable(t *testing.T) {
	r := registry(t, &fake{name: "whisper"}, &fake{name: "openai"})
	_, err := NewManager(r, []string{"whisper", "openai"}, logger.Nop()).Get(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = NewManager(r, []string{"missing"}, logger.Nop()).Get(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)
}

type flaky struct {
	fake
	calls int
}

func TestManagerBreakerSkipsFailingProvider(t *testing.T) {
	primary := &flaky{fake: fake{name: "whisper", up: true}}
	backup := &flaky{fake: fake{name: "openai", up: true}}
	r := NewRegistry[*flaky]()
	require.NoError(t, r.Register(primary))
	require.NoError(t, r.Register(backup))

	m := NewManager(r, []string{"whisper", "openai"}, logger.Nop()).
		WithBreakers(resilience.Config{MaxFailures: 2, Timeout: time.Minute})

	down := errors.New("connection refused")
	for i := 0; i < 2; i++ {
		err := m.Do(context.Background(), func(p *flaky) error {
			p.calls++
			return down
		})
		assert.ErrorIs(t, err, down)
	}
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, resilience.StateOpen, m.Breaker("whisper").State())

	err := m.Do(context.Background(), func(p *flaky) error {
		p.calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestManagerBreakerSingleProviderFailsFast(t *testing.T) {
	m := NewManager(registry(t, &fake{name: "ollama"}), []string{"ollama"}, logger.Nop()).
		WithBreakers(resilience.Config{MaxFailures: 1, Timeout: time.Minute})

	_ = m.Do(context.Background(), func(*fake) error { return errors.New("timeout") })
	err := m.Do(context.Background(), func(*fake) error {
		t.Fatal("open provider must not be called")
		return nil
	})
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestManagerWithoutBreakers(t *testing.T) {
	m := NewManager(registry(t, &fake{name: "ollama"}), []string{"ollama"}, logger.Nop())
	assert.Nil(t, m.Breaker("ollama"))
	for i := 0; i < 10; i++ {
		_ = m.Do(context.Background(), func(*fake) error { return errors.New("timeout") })
	}
	called := false
	require.NoError(t, m.Do(context.Background(), func(*fake) error { called = true; return nil }))
	assert.True(t, called)
}
