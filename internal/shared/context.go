package shared

import "context"

// Identity is the authenticated caller resolved by the auth middleware.
// Role distinguishes the two sides of a purchase order negotiation.
type Identity struct {
	AccountID int64
	Role      string // "owner" or "vendor"
	VendorID  int64  // set when Role is vendor
}

type identityContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
