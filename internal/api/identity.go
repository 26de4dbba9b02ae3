package api

import (
	"context"

	"github.com/redquill/redquill-core/internal/auth"
)

// Identity is the resolved session for an authenticated request: the
// account plus the device the token was verified against. Device is nil
// for legacy shared-secret sessions.
type Identity struct {
	User   *auth.User
	Device *auth.Device
}

// ctxKeyIdentity is the context key for the verified request identity.
const ctxKeyIdentity contextKey = "identity"

// withIdentity returns a context carrying the verified identity.
func withIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// identityFromContext extracts the verified identity set by authMiddleware.
// The second return is false on routes that did not pass through it.
func identityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(*Identity)
	return id, ok
}
