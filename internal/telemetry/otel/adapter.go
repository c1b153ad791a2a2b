package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"geointel/internal/alerting"
	"geointel/internal/telemetry"
)

const loggerName = "geointel.alerts"

// recordEmitter is the part of otellog.Logger the emitter needs.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewAlertEmitter returns an AlertEmitter that sends alerts as OTel log records via the given
// LoggerProvider. If provider is nil, returns a no-op emitter.
func NewAlertEmitter(provider *sdklog.LoggerProvider) telemetry.AlertEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &alertEmitter{logger: provider.Logger(loggerName)}
}

// NewAlertEmitterWithLogger returns an emitter writing to logger directly.
func NewAlertEmitterWithLogger(logger recordEmitter) telemetry.AlertEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &alertEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, alerting.Alert) error { return nil }

type alertEmitter struct {
	logger recordEmitter
	now    func() time.Time
}

// Emit converts the alert to a log record: the message is the body, kind and severity are
// attributes, and the severity maps onto the OTel severity scale.
func (e *alertEmitter) Emit(ctx context.Context, a alerting.Alert) error {
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	rec := otellog.Record{}
	rec.SetTimestamp(now().UTC())
	rec.SetEventName("geointel.alert")
	rec.SetBody(otellog.StringValue(a.Message))
	rec.SetSeverity(severity(a.Severity))
	if a.Severity != "" {
		rec.SetSeverityText(a.Severity)
	}
	rec.AddAttributes(otellog.String("alert.kind", a.Kind))
	e.logger.Emit(ctx, rec)
	return nil
}

func severity(s string) otellog.Severity {
	switch s {
	case alerting.SeverityHigh:
		return otellog.SeverityError
	case alerting.SeverityMedium:
		return otellog.SeverityWarn
	case alerting.SeverityLow:
		return otellog.SeverityInfo
	}
	return otellog.SeverityUndefined
}
