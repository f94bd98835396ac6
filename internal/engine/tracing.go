package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlet99/pulsemon/internal/alerts"
)

// TracingConfig holds configuration for tracing
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
}

// Tracer wraps the OpenTelemetry tracer used for engine-internal spans
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	logger   *slog.Logger
}

// NewTracer creates a tracer. With no OTLP endpoint configured, spans
// go to a console exporter.
func NewTracer(config *TracingConfig, logger *slog.Logger) (*Tracer, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	if config.OTLPEndpoint != "" {
		exporter, err = otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpoint(config.OTLPEndpoint),
		)
		if err != nil {
			logger.Warn("Failed to create OTLP exporter, falling back to console", "error", err)
			exporter = nil
		}
	}
	if exporter == nil {
		exporter, err = stdouttrace.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SampleRate)),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(config.ServiceName),
		provider: provider,
		logger:   logger,
	}, nil
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, name string,
	opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown gracefully shuts down the tracer
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// tracingSink decorates a notification sink with a delivery span
type tracingSink struct {
	tracer *Tracer
	next   alerts.Sink
}

func newTracingSink(tracer *Tracer, next alerts.Sink) *tracingSink {
	return &tracingSink{tracer: tracer, next: next}
}

// Name returns the wrapped sink identifier
func (s *tracingSink) Name() string { return s.next.Name() }

// Handle delivers through the wrapped sink under a span
func (s *tracingSink) Handle(ctx context.Context, alert alerts.Alert) error {
	ctx, span := s.tracer.StartSpan(ctx, "alert.notify")
	defer span.End()

	span.SetAttributes(
		attribute.String("alert.id", alert.ID),
		attribute.String("alert.rule_id", alert.RuleID),
		attribute.String("alert.severity", alert.Severity.String()),
		attribute.String("sink.name", s.next.Name()),
	)

	start := time.Now()
	err := s.next.Handle(ctx, alert)
	span.SetAttributes(attribute.Int64("sink.duration_ms", time.Since(start).Milliseconds()))

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
