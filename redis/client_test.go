package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/audiolens/component"
	"github.com/kbukum/audiolens/logger"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client, err := New(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

func TestPushPopIsFIFO(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	if err := client.Push(ctx, "q", "a", "b"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := client.Push(ctx, "q", "c"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	for _, want := range []string{"a", "b", "c"} {
		got, ok, err := client.PopWait(ctx, "q", time.Second)
		if err != nil || !ok {
			t.Fatalf("PopWait: ok=%v err=%v", ok, err)
		}
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestPopWaitTimesOut(t *testing.T) {
	client, _ := newTestClient(t)
	_, ok, err := client.PopWait(context.Background(), "empty", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("PopWait: %v", err)
	}
	if ok {
		t.Error("expected timeout on an empty list")
	}
}

func TestLen(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	_ = client.Push(ctx, "q", "a", "b")
	n, err := client.Len(ctx, "q")
	if err != nil || n != 2 {
		t.Errorf("Len = %d, %v", n, err)
	}
}

func TestCloseTwice(t *testing.T) {
	client, _ := newTestClient(t)
	if err := client.Close(); err != nil {
		t.Fatal(err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestNewRejectsDisabled(t *testing.T) {
	if _, err := New(Config{}, logger.Nop()); err == nil {
		t.Error("expected error for disabled config")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.ReadTimeout = "soon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected parse error")
	}
}

func TestComponentLifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	c := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s: %s", h.Status, h.Message)
	}
	if err := c.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
