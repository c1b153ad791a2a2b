package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"geointel/internal/alerting"
)

// emitTimeout bounds one async batch of alert emits. Used by EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after gRPC GracefulStop before shutting down OTel
// providers, so in-flight async emits can complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync emits alerts from a goroutine so the RPC is not blocked. Errors are logged.
// The goroutine uses context.Background() so request cancellation does not abort the emit.
// The returned channel is closed once every alert has been handed to the emitter; callers
// that do not care may ignore it. A nil emitter or empty alerts return an already closed channel.
func EmitAsync(emitter AlertEmitter, alerts []alerting.Alert, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if emitter == nil || len(alerts) == 0 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	alerts = append([]alerting.Alert(nil), alerts...)
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		for _, a := range alerts {
			if err := emitter.Emit(ctx, a); err != nil {
				logger.Warn("telemetry: alert emit failed", zap.String("kind", a.Kind), zap.Error(err))
			}
		}
	}()
	return done
}
