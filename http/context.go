package http

import (
	"context"

	"github.com/synodriver/davgate/auth"
)

// authResultKey is the context key for the authentication outcome.
type authResultKey struct{}

// WithAuthResult returns a new context carrying the authentication outcome
// of the current request.
func WithAuthResult(ctx context.Context, result auth.Result) context.Context {
	return context.WithValue(ctx, authResultKey{}, result)
}

// AuthResultFromContext retrieves the authentication outcome attached by
// the auth middleware. ok is false when the request never went through
// authentication.
func AuthResultFromContext(ctx context.Context) (auth.Result, bool) {
	result, ok := ctx.Value(authResultKey{}).(auth.Result)
	return result, ok
}
