package auth

import "context"

type contextKey struct{}

// RealmFrontend labels credentials established through the public token
// login endpoint, as opposed to any back-office authentication.
const RealmFrontend = "frontend"

// Credential is the authenticated state installed for the rest of the
// request cycle once login succeeds.
type Credential struct {
	MemberID  int64
	Username  string
	SessionID int64
	Realm     string
}

func WithCredential(ctx context.Context, c Credential) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (Credential, bool) {
	c, ok := ctx.Value(contextKey{}).(Credential)
	return c, ok
}

func MemberID(ctx context.Context) int64 {
	c, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return c.MemberID
}

func Username(ctx context.Context) string {
	c, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return c.Username
}
