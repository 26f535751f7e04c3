package component

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	status   HealthStatus
	calls    *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	*f.calls = append(*f.calls, "start:"+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	*f.calls = append(*f.calls, "stop:"+f.name)
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) Health {
	return Health{Name: f.name, Status: f.status}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	var calls []string
	r := NewRegistry(nil)
	if err := r.Register(&fakeComponent{name: "database", calls: &calls}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&fakeComponent{name: "database", calls: &calls}); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestStartStopOrdering(t *testing.T) {
	var calls []string
	r := NewRegistry(nil)
	for _, n := range []string{"database", "storage", "queue"} {
		if err := r.Register(&fakeComponent{name: n, calls: &calls, status: StatusHealthy}); err != nil {
			t.Fatal(err)
		}
	}

	ctx := context.Background()
	if err := r.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := []string{
		"start:database", "start:storage", "start:queue",
		"stop:queue", "stop:storage", "stop:database",
	}
	if !slices.Equal(calls, want) {
		t.Errorf("got %v, want %v", calls, want)
	}
}

func TestStartFailureStopsOnlyStarted(t *testing.T) {
	var calls []string
	r := NewRegistry(nil)
	_ = r.Register(&fakeComponent{name: "database", calls: &calls})
	_ = r.Register(&fakeComponent{name: "storage", calls: &calls, startErr: errors.New("bucket missing")})
	_ = r.Register(&fakeComponent{name: "queue", calls: &calls})

	ctx := context.Background()
	err := r.StartAll(ctx)
	if err == nil || !strings.Contains(err.Error(), "start storage") {
		t.Fatalf("expected storage start error, got %v", err)
	}
	_ = r.StopAll(ctx)

	want := []string{"start:database", "start:storage", "stop:database"}
	if !slices.Equal(calls, want) {
		t.Errorf("got %v, want %v", calls, want)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	var calls []string
	r := NewRegistry(nil)
	_ = r.Register(&fakeComponent{name: "a", calls: &calls, stopErr: errors.New("a failed")})
	_ = r.Register(&fakeComponent{name: "b", calls: &calls, stopErr: errors.New("b failed")})

	ctx := context.Background()
	_ = r.StartAll(ctx)
	err := r.StopAll(ctx)
	if err == nil || !strings.Contains(err.Error(), "a failed") || !strings.Contains(err.Error(), "b failed") {
		t.Errorf("expected both stop errors, got %v", err)
	}
}

func TestReady(t *testing.T) {
	var calls []string
	r := NewRegistry(nil)
	_ = r.Register(&fakeComponent{name: "database", calls: &calls, status: StatusHealthy})
	if err := r.Ready(context.Background()); err != nil {
		t.Fatalf("expected ready, got %v", err)
	}

	_ = r.Register(&fakeComponent{name: "queue", calls: &calls, status: StatusUnhealthy})
	err := r.Ready(context.Background())
	if err == nil || !strings.Contains(err.Error(), "queue=unhealthy") {
		t.Errorf("expected queue to be reported, got %v", err)
	}
	if len(r.HealthAll(context.Background())) != 2 {
		t.Error("expected two health reports")
	}
}

func TestStartAllStartsLateRegistrationsOnce(t *testing.T) {
	var calls []string
	r := NewRegistry(nil)
	_ = r.Register(&fakeComponent{name: "database", calls: &calls})

	ctx := context.Background()
	if err := r.StartAll(ctx); err != nil {
		t.Fatal(err)
	}
	_ = r.Register(&describedComponent{fakeComponent{name: "http-server", calls: &calls}})
	if err := r.StartAll(ctx); err != nil {
		t.Fatal(err)
	}

	want := []string{"start:database", "start:http-server"}
	if !slices.Equal(calls, want) {
		t.Errorf("got %v, want %v", calls, want)
	}
	descs := r.Describe()
	if len(descs) != 1 || descs[0].Type != "server" {
		t.Errorf("expected one server description, got %v", descs)
	}
}

type describedComponent struct{ fakeComponent }

func (d *describedComponent) Describe() Description {
	return Description{Name: d.name, Type: "server"}
}
