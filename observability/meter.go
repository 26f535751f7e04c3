package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/audiolens/logger"
)

// InitMeter installs a periodic OTLP/HTTP meter provider as the global one.
func InitMeter(ctx context.Context, cfg Config, info ServiceInfo, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: metric exporter: %w", err)
	}
	res, err := newResource(info)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricsInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	log.Info("meter initialized", logger.Fields("endpoint", cfg.Endpoint, "interval", cfg.MetricsInterval.String()))
	return mp, nil
}

// Meter returns the package meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// PipelineMetrics are the job-run instruments.
type PipelineMetrics struct {
	runs          metric.Int64Counter
	runDuration   metric.Float64Histogram
	stageDuration metric.Float64Histogram
	stageErrors   metric.Int64Counter
	segments      metric.Int64Histogram
}

func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	runs, err := meter.Int64Counter("audiolens.jobs.runs",
		metric.WithDescription("Pipeline runs by final job status"))
	if err != nil {
		return nil, fmt.Errorf("observability: runs counter: %w", err)
	}
	runDuration, err := meter.Float64Histogram("audiolens.jobs.run.duration",
		metric.WithDescription("Wall time of a pipeline run"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("observability: run duration histogram: %w", err)
	}
	stageDuration, err := meter.Float64Histogram("audiolens.jobs.stage.duration",
		metric.WithDescription("Wall time per pipeline stage"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("observability: stage duration histogram: %w", err)
	}
	stageErrors, err := meter.Int64Counter("audiolens.jobs.stage.errors",
		metric.WithDescription("Stage failures by stage and error kind"))
	if err != nil {
		return nil, fmt.Errorf("observability: stage errors counter: %w", err)
	}
	segments, err := meter.Int64Histogram("audiolens.jobs.segments",
		metric.WithDescription("Segments written per completed job"))
	if err != nil {
		return nil, fmt.Errorf("observability: segments histogram: %w", err)
	}
	return &PipelineMetrics{
		runs:          runs,
		runDuration:   runDuration,
		stageDuration: stageDuration,
		stageErrors:   stageErrors,
		segments:      segments,
	}, nil
}

// RecordRun counts one finished run. status is the job status the run left
// behind, or "aborted" when no terminal status could be written.
func (m *PipelineMetrics) RecordRun(ctx context.Context, status string, d time.Duration, segments int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrStatus, status))
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
	if status == "completed" {
		m.segments.Record(ctx, int64(segments))
	}
}

func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrStage, stage)))
}

func (m *PipelineMetrics) RecordStageError(ctx context.Context, stage, kind string) {
	if m == nil {
		return
	}
	m.stageErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStage, stage),
		attribute.String(AttrErrorKind, kind),
	))
}

// HTTPMetrics are the intake API instruments.
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requests, err := meter.Int64Counter("audiolens.http.requests",
		metric.WithDescription("HTTP requests by route and status"))
	if err != nil {
		return nil, fmt.Errorf("observability: requests counter: %w", err)
	}
	duration, err := meter.Float64Histogram("audiolens.http.duration",
		metric.WithDescription("HTTP request latency"), metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("observability: request duration histogram: %w", err)
	}
	active, err := meter.Int64UpDownCounter("audiolens.http.active",
		metric.WithDescription("In-flight HTTP requests"))
	if err != nil {
		return nil, fmt.Errorf("observability: active gauge: %w", err)
	}
	return &HTTPMetrics{requests: requests, duration: duration, active: active}, nil
}

func (m *HTTPMetrics) Start(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1)
}

func (m *HTTPMetrics) End(ctx context.Context, method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1)
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, d.Seconds(), attrs)
}
