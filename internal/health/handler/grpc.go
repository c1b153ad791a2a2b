package handler

import (
	"context"

	"go.uber.org/zap"

	healthv1 "geointel/api/health/v1"
)

// Pinger checks store connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the alert policy compiles and evaluates (e.g. the OPA evaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements HealthService for readiness/liveness.
type Server struct {
	healthv1.UnimplementedHealthServiceServer
	pinger        Pinger
	policyChecker PolicyChecker
	logger        *zap.Logger
}

// NewServer returns a new Health gRPC server. pinger and policyChecker may be nil; the
// corresponding check is then skipped.
func NewServer(pinger Pinger, policyChecker PolicyChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pinger: pinger, policyChecker: policyChecker, logger: logger}
}

// HealthCheck reports NOT_SERVING when any dependency check fails. Failures are carried in
// the response, never as a gRPC error, so probes can read them.
func (s *Server) HealthCheck(ctx context.Context, _ *healthv1.HealthCheckRequest) (*healthv1.HealthCheckResponse, error) {
	resp := &healthv1.HealthCheckResponse{Status: healthv1.ServingStatusServing, Checks: map[string]string{}}
	check := func(name string, fn func(context.Context) error) {
		if err := fn(ctx); err != nil {
			s.logger.Warn("health: check failed", zap.String("check", name), zap.Error(err))
			resp.Status = healthv1.ServingStatusNotServing
			resp.Checks[name] = err.Error()
			return
		}
		resp.Checks[name] = "ok"
	}
	if s.pinger != nil {
		check("store", s.pinger.PingContext)
	}
	if s.policyChecker != nil {
		check("alert_policy", s.policyChecker.HealthCheck)
	}
	return resp, nil
}
