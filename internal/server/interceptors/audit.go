package interceptors

import (
	"context"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"geointel/internal/audit"
)

// AccessLogUnary returns a unary server interceptor that writes one structured log line per RPC
// with the caller, method, status code and duration. skipMethods is the set of full method
// names to not log (e.g. HealthCheck). Failed RPCs with a server-side code log at warn.
// Place it before AuthUnary in the chain so rejected calls are logged with the caller.
func AccessLogUnary(logger *zap.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if skipMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		start := time.Now()
		ctx, holder := withIdentityHolder(ctx)
		resp, err := handler(ctx, req)
		code := status.Code(err)
		subject, role := holder.subject, holder.role
		if subject == "" {
			subject, _ = GetSubject(ctx)
			role, _ = GetRole(ctx)
		}
		ar := audit.ParseFullMethod(info.FullMethod)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("action", ar.Action),
			zap.String("resource", ar.Resource),
			zap.Bool("write", ar.Write()),
			zap.String("code", code.String()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", ClientIP(ctx)),
			zap.String("subject", subject),
			zap.String("role", role),
		}
		if serverFault(code) {
			logger.Warn("grpc request", append(fields, zap.Error(err))...)
		} else {
			logger.Info("grpc request", fields...)
		}
		return resp, err
	}
}

func serverFault(code codes.Code) bool {
	switch code {
	case codes.Internal, codes.Unknown, codes.Unavailable, codes.DataLoss, codes.DeadlineExceeded:
		return true
	}
	return false
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
