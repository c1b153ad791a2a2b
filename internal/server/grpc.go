package server

import (
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	healthv1 "geointel/api/health/v1"
	intelv1 "geointel/api/intel/v1"
	"geointel/internal/alerting"
	"geointel/internal/event/repository"
	healthhandler "geointel/internal/health/handler"
	intelhandler "geointel/internal/intel/handler"
	"geointel/internal/server/interceptors"
	"geointel/internal/telemetry"
)

// Deps holds service dependencies for gRPC handlers.
type Deps struct {
	// Events is the event store behind IntelService reads. If nil, IntelService is not registered.
	Events repository.Repository
	// Ingester validates and writes events (store in sync mode, Kafka in async mode).
	Ingester intelhandler.Ingester
	// Alerts evaluates alert rules on every Analyze. If nil, Analyze returns no alerts.
	Alerts alerting.Evaluator
	// AlertEmitter ships alerts to OTel logs. If nil, alerts are returned but not emitted.
	AlertEmitter telemetry.AlertEmitter
	// HealthPinger is used by HealthService for readiness (e.g. *sql.DB). If nil, HealthCheck skips the store ping.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by HealthService for readiness (e.g. OPA evaluator). If nil, HealthCheck skips the policy check.
	HealthPolicyChecker healthhandler.PolicyChecker
	Logger              *zap.Logger
}

// RegisterServices registers the gRPC services with the given server.
//
// Service → handler mapping:
//   - IntelService  → internal/intel/handler
//   - HealthService → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Events != nil {
		var opts []intelhandler.Option
		if deps.Alerts != nil {
			opts = append(opts, intelhandler.WithAlerts(deps.Alerts, deps.AlertEmitter))
		}
		intelv1.RegisterIntelServiceServer(s, intelhandler.NewServer(deps.Events, deps.Ingester, logger.Named("intel"), opts...))
	}
	healthv1.RegisterHealthServiceServer(s, healthhandler.NewServer(deps.HealthPinger, deps.HealthPolicyChecker, logger.Named("health")))
}

// PublicMethods are the RPCs callable without a bearer token.
func PublicMethods() map[string]bool {
	return map[string]bool{
		healthv1.HealthCheckFullMethodName: true,
	}
}

// OperatorMethods are the RPCs that write to the store and require the operator role.
func OperatorMethods() map[string]bool {
	return map[string]bool{
		intelv1.IngestEventsFullMethodName:      true,
		intelv1.ImportCSVFullMethodName:         true,
		intelv1.GenerateSyntheticFullMethodName: true,
	}
}

// UnaryInterceptors builds the interceptor chain, outermost first: request metrics, the
// access log, then bearer auth (skipped when tokens is nil). The access log sits outside
// auth so rejected calls are logged too.
func UnaryInterceptors(tokens interceptors.TokenValidator, logger *zap.Logger, meter metric.Meter) ([]grpc.UnaryServerInterceptor, error) {
	skip := PublicMethods()
	metrics, err := interceptors.MetricsUnary(meter, skip)
	if err != nil {
		return nil, err
	}
	chain := []grpc.UnaryServerInterceptor{metrics, interceptors.AccessLogUnary(logger, skip)}
	if tokens != nil {
		chain = append(chain, interceptors.AuthUnary(tokens, PublicMethods(), OperatorMethods()))
	}
	return chain, nil
}
