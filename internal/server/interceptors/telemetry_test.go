package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMetricsUnary(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	interceptor, err := MetricsUnary(provider.Meter("test"), map[string]bool{publicMethod: true})
	require.NoError(t, err)

	ok := func(context.Context, interface{}) (interface{}, error) { return "done", nil }
	denied := func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.PermissionDenied, "no")
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: readMethod}, ok)
		require.NoError(t, err)
	}
	_, _ = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: operatorMethod}, denied)
	_, _ = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: publicMethod}, ok)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	counts := map[string]int64{}
	var histogramSeen bool
	for _, m := range rm.ScopeMetrics[0].Metrics {
		switch data := m.Data.(type) {
		case metricdata.Sum[int64]:
			assert.Equal(t, "geointel.rpc.requests", m.Name)
			for _, dp := range data.DataPoints {
				method, _ := dp.Attributes.Value(attribute.Key("rpc.method"))
				code, _ := dp.Attributes.Value(attribute.Key("rpc.grpc.status_code"))
				counts[method.AsString()+" "+code.AsString()] += dp.Value
			}
		case metricdata.Histogram[float64]:
			assert.Equal(t, "geointel.rpc.duration", m.Name)
			histogramSeen = true
		}
	}
	assert.True(t, histogramSeen)
	assert.Equal(t, map[string]int64{
		readMethod + " OK":                   2,
		operatorMethod + " PermissionDenied": 1,
	}, counts)
}

func TestMetricsUnary_NilMeter(t *testing.T) {
	interceptor, err := MetricsUnary(nil, nil)
	require.NoError(t, err)
	resp, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: readMethod},
		func(context.Context, interface{}) (interface{}, error) { return "done", nil })
	require.NoError(t, err)
	assert.Equal(t, "done", resp)
}
