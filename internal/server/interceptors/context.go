package interceptors

import "context"

type contextKey struct{ name string }

var (
	subjectKey = contextKey{"subject"}
	roleKey    = contextKey{"role"}
	holderKey  = contextKey{"identity-holder"}
)

// identityHolder is installed by the access log so it can see the identity auth resolved
// further down the chain, including for calls auth rejects.
type identityHolder struct {
	subject string
	role    string
}

func withIdentityHolder(ctx context.Context) (context.Context, *identityHolder) {
	h := &identityHolder{}
	return context.WithValue(ctx, holderKey, h), h
}

// recordIdentity stores subject and role in the holder on ctx, if any.
func recordIdentity(ctx context.Context, subject, role string) {
	if h, ok := ctx.Value(holderKey).(*identityHolder); ok {
		h.subject, h.role = subject, role
	}
}

// WithIdentity returns a context carrying the caller's token subject and role.
func WithIdentity(ctx context.Context, subject, role string) context.Context {
	ctx = context.WithValue(ctx, subjectKey, subject)
	ctx = context.WithValue(ctx, roleKey, role)
	return ctx
}

// GetSubject returns the token subject from context and true if set; otherwise "", false.
func GetSubject(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey).(string)
	return v, ok
}

// GetRole returns the caller's role from context and true if set; otherwise "", false.
func GetRole(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(roleKey).(string)
	return v, ok
}
