package interceptors

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// MetricsUnary returns a unary server interceptor recording a request counter and a latency
// histogram per method and status code. skipMethods is the set of full method names to not
// record (e.g. HealthCheck). A nil meter disables recording.
func MetricsUnary(meter metric.Meter, skipMethods map[string]bool) (grpc.UnaryServerInterceptor, error) {
	if meter == nil {
		return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
			return handler(ctx, req)
		}, nil
	}
	requests, err := meter.Int64Counter("geointel.rpc.requests",
		metric.WithDescription("Unary RPCs handled"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("geointel.rpc.duration",
		metric.WithDescription("Unary RPC latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		attrs := metric.WithAttributes(
			attribute.String("rpc.method", info.FullMethod),
			attribute.String("rpc.grpc.status_code", status.Code(err).String()),
		)
		requests.Add(ctx, 1, attrs)
		latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
		return resp, err
	}, nil
}
