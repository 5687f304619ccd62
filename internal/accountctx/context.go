package accountctx

import "context"

// Identity is the resolved caller identity attached to a request context.
type Identity struct {
	AccountID  string
	Privileged bool
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.AccountID == "" {
		return Identity{}, false
	}
	return id, true
}
