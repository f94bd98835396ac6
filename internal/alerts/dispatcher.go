package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultDispatchTimeout = 10 * time.Second

// Sink consumes newly created alerts. Implementations must be safe for
// concurrent use; a failing sink never affects the alert's committed
// state or the remaining sinks.
type Sink interface {
	Name() string
	Handle(ctx context.Context, alert Alert) error
}

// Dispatcher invokes an ordered list of sinks for each created alert.
// The engine functions correctly with zero sinks configured.
type Dispatcher struct {
	logger  *slog.Logger
	sinks   []Sink
	timeout time.Duration
}

// NewDispatcher creates a dispatcher over the given sinks
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger:  logger,
		sinks:   sinks,
		timeout: defaultDispatchTimeout,
	}
}

// Add appends a sink to the dispatch order
func (d *Dispatcher) Add(sink Sink) {
	d.sinks = append(d.sinks, sink)
}

// Dispatch delivers the alert to every sink in order. Sink errors and
// panics are logged and isolated so the evaluator loop keeps running.
func (d *Dispatcher) Dispatch(ctx context.Context, alert Alert) {
	for _, sink := range d.sinks {
		d.deliver(ctx, sink, alert)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sink Sink, alert Alert) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("notification sink panicked",
				"sink", sink.Name(),
				"alert_id", alert.ID,
				"panic", fmt.Sprintf("%v", rec))
		}
	}()

	if err := sink.Handle(ctx, alert); err != nil {
		d.logger.Error("notification sink failed",
			"sink", sink.Name(),
			"alert_id", alert.ID,
			"error", err)
		return
	}
	d.logger.Debug("notification delivered", "sink", sink.Name(), "alert_id", alert.ID)
}

// LogSink writes alerts to the structured logger
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink that logs each alert
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Name returns the sink identifier
func (s *LogSink) Name() string { return "log" }

// Handle logs the alert at a level matching its severity
func (s *LogSink) Handle(_ context.Context, alert Alert) error {
	attrs := []any{
		"alert_id", alert.ID,
		"rule_id", alert.RuleID,
		"severity", alert.Severity.String(),
		"title", alert.Title,
		"message", alert.Message,
		"value", alert.Value,
		"threshold", alert.Threshold,
	}
	if alert.Severity >= SeverityCritical {
		s.logger.Error("alert notification", attrs...)
	} else {
		s.logger.Warn("alert notification", attrs...)
	}
	return nil
}
