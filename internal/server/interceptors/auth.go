package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"geointel/internal/security"
)

const bearerPrefix = "bearer "

// TokenValidator validates a bearer access token. Satisfied by *security.TokenProvider.
type TokenValidator interface {
	ValidateAccess(token string) (*security.Identity, error)
}

// AuthUnary returns a unary server interceptor that validates the Bearer (access) token
// from gRPC metadata and sets subject and role in context.
// publicMethods is the set of full method names that do not require a token (e.g.
// HealthService HealthCheck); a valid token on a public method still sets the identity.
// operatorMethods is the set of full method names that write to the store and require the
// operator role; viewers get PermissionDenied.
func AuthUnary(tokens TokenValidator, publicMethods, operatorMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		id, err := tokens.ValidateAccess(token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		recordIdentity(ctx, id.Subject, id.Role)
		if operatorMethods[info.FullMethod] && id.Role != security.RoleOperator {
			return nil, status.Error(codes.PermissionDenied, "operator role required")
		}

		ctx = WithIdentity(ctx, id.Subject, id.Role)
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
