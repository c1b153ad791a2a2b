package interceptors

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"geointel/internal/security"
)

const (
	publicMethod   = "/test.Service/HealthCheck"
	readMethod     = "/test.Service/Analyze"
	operatorMethod = "/test.Service/IngestEvents"
)

func newTokens(t *testing.T) *security.TokenProvider {
	t.Helper()
	key, err := security.GenerateKey(security.AlgES256)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return security.NewTokenProvider(key, key.Public(), "test-issuer", "test-audience", time.Minute)
}

func issue(t *testing.T, tokens *security.TokenProvider, role string) string {
	t.Helper()
	token, _, err := tokens.IssueAccess("analyst-1", role)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return token
}

func bearerContext(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

func newAuthInterceptor(tokens *security.TokenProvider) grpc.UnaryServerInterceptor {
	return AuthUnary(tokens, map[string]bool{publicMethod: true}, map[string]bool{operatorMethod: true})
}

// identityHandler echoes the identity the interceptor put in context.
func identityHandler(ctx context.Context, _ interface{}) (interface{}, error) {
	subject, _ := GetSubject(ctx)
	role, _ := GetRole(ctx)
	return subject + "/" + role, nil
}

func TestAuthUnary_PublicMethod(t *testing.T) {
	tokens := newTokens(t)
	interceptor := newAuthInterceptor(tokens)

	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: publicMethod}, identityHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "/" {
		t.Errorf("response = %v, want anonymous identity", resp)
	}

	// an invalid token on a public method is ignored
	_, err = interceptor(bearerContext("garbage"), "request", &grpc.UnaryServerInfo{FullMethod: publicMethod}, identityHandler)
	if err != nil {
		t.Fatalf("interceptor with bad token on public method: %v", err)
	}

	resp, err = interceptor(bearerContext(issue(t, tokens, security.RoleViewer)), "request", &grpc.UnaryServerInfo{FullMethod: publicMethod}, identityHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "analyst-1/viewer" {
		t.Errorf("response = %v, want identity set on public method", resp)
	}
}

func TestAuthUnary_ProtectedMethod(t *testing.T) {
	tokens := newTokens(t)
	interceptor := newAuthInterceptor(tokens)
	other := newTokens(t)

	testCases := []struct {
		name     string
		ctx      context.Context
		method   string
		wantCode codes.Code
		wantResp string
	}{
		{"no token", context.Background(), readMethod, codes.Unauthenticated, ""},
		{"malformed header", metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc")), readMethod, codes.Unauthenticated, ""},
		{"foreign signer", bearerContext(issue(t, other, security.RoleOperator)), readMethod, codes.Unauthenticated, ""},
		{"viewer reads", bearerContext(issue(t, tokens, security.RoleViewer)), readMethod, codes.OK, "analyst-1/viewer"},
		{"viewer writes", bearerContext(issue(t, tokens, security.RoleViewer)), operatorMethod, codes.PermissionDenied, ""},
		{"operator writes", bearerContext(issue(t, tokens, security.RoleOperator)), operatorMethod, codes.OK, "analyst-1/operator"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := interceptor(tc.ctx, "request", &grpc.UnaryServerInfo{FullMethod: tc.method}, identityHandler)
			if got := status.Code(err); got != tc.wantCode {
				t.Fatalf("status code = %v, want %v (err %v)", got, tc.wantCode, err)
			}
			if tc.wantCode == codes.OK && resp != tc.wantResp {
				t.Errorf("response = %v, want %q", resp, tc.wantResp)
			}
		})
	}
}

func TestExtractBearer(t *testing.T) {
	testCases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer   abc  ", "abc"},
		{"BEARER abc", "abc"},
		{"Basic abc", ""},
		{"Bear", ""},
	}
	for _, tc := range testCases {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", tc.header))
		if got := extractBearer(ctx); got != tc.want {
			t.Errorf("extractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
	if got := extractBearer(context.Background()); got != "" {
		t.Errorf("extractBearer without metadata = %q", got)
	}
}
