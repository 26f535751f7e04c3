package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/audiolens/logger"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, "localhost:4318", cfg.Endpoint)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, 15*time.Second, cfg.MetricsInterval)
	require.NoError(t, cfg.Validate())

	cfg.SampleRate = 2
	assert.Error(t, cfg.Validate())
}

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{}, ServiceInfo{Name: "audiolens"}, logger.Nop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSpansRecordErrors(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), "pipeline.transcribe", attribute.String(AttrJobID, "abc123"))
	EndSpan(span, errors.New("model down"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.transcribe", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String(AttrJobID, "abc123"))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestPipelineMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordRun(ctx, "completed", time.Second, 2)
	m.RecordRun(ctx, "failed", time.Second, 0)
	m.RecordStage(ctx, "transcribe", 300*time.Millisecond)
	m.RecordStageError(ctx, "download", "STORAGE_ERROR")

	got := collect(t, reader)
	runs, ok := got["audiolens.jobs.runs"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range runs.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(2), total)

	segs, ok := got["audiolens.jobs.segments"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, segs.DataPoints, 1)
	assert.Equal(t, uint64(1), segs.DataPoints[0].Count, "only completed runs record segments")

	errs, ok := got["audiolens.jobs.stage.errors"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, errs.DataPoints, 1)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var p *PipelineMetrics
	p.RecordRun(context.Background(), "completed", 0, 0)
	var h *HTTPMetrics
	h.Start(context.Background())
	h.End(context.Background(), "GET", "/", 200, 0)
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewHTTPMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.Start(ctx)
	m.End(ctx, "POST", "/uploads/notify", 201, 10*time.Millisecond)

	got := collect(t, reader)
	active, ok := got["audiolens.http.active"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, active.DataPoints, 1)
	assert.Equal(t, int64(0), active.DataPoints[0].Value)
}
