package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "audiolens", buf)
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", buf.String(), err)
	}
	return m
}

func TestJSONOutputCarriesServiceAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").WithComponent("pipeline")

	l.Info("job completed", Fields(FieldJobID, "abc123", "segments", 1))

	m := decode(t, &buf)
	if m["service"] != "audiolens" {
		t.Errorf("expected service field, got %v", m["service"])
	}
	if m[FieldComponent] != "pipeline" {
		t.Errorf("expected component=pipeline, got %v", m[FieldComponent])
	}
	if m[FieldJobID] != "abc123" {
		t.Errorf("expected job_id=abc123, got %v", m[FieldJobID])
	}
	if m["message"] != "job completed" {
		t.Errorf("unexpected message %v", m["message"])
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "warn")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn should be written, got %q", buf.String())
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "loud")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithJobID(ctx, "job-9")

	jsonLogger(&buf, "info").WithContext(ctx).Info("hello")

	m := decode(t, &buf)
	if m[FieldRequestID] != "req-1" || m[FieldJobID] != "job-9" {
		t.Errorf("context ids missing: %v", m)
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").WithError(errors.New("disk full")).Error("write failed")

	m := decode(t, &buf)
	if m["error"] != "disk full" {
		t.Errorf("expected error field, got %v", m["error"])
	}
}

func TestConsoleFormatNoColor(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "audiolens", &buf)
	l.Info("ready")
	if !strings.Contains(buf.String(), "[INF]") {
		t.Errorf("expected plain level tag, got %q", buf.String())
	}
}

func TestNopDiscards(t *testing.T) {
	Nop().WithComponent("x").Error("ignored")
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" || !cfg.Timestamp {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	cfg.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected format error")
	}
}

func TestFieldHelpers(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("odd trailing key should be dropped: %v", f)
	}
	d := DurationFields("transcribe", 1500*time.Millisecond)
	if d[FieldDuration] != int64(1500) {
		t.Errorf("expected 1500ms, got %v", d[FieldDuration])
	}
	e := ErrorFields("download", errors.New("miss"))
	if e[FieldError] != "miss" {
		t.Errorf("expected error text, got %v", e[FieldError])
	}
}
