// Package identity turns identity-provider credentials into callers and lifecycle events.
package identity

import (
	"context"
	"strings"
)

// Caller is the authenticated principal behind a request, as issued by the identity provider.
type Caller struct {
	ExternalID string
}

// Authenticated reports whether the caller carries an identity.
func (c Caller) Authenticated() bool {
	return strings.TrimSpace(c.ExternalID) != ""
}

type contextKey string

const callerContextKey contextKey = "legacy/caller"

// WithCaller stores the caller on the context.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey, caller)
}

// CallerFromContext returns the caller stored on the context, or an anonymous caller.
func CallerFromContext(ctx context.Context) Caller {
	if ctx == nil {
		return Caller{}
	}
	if caller, ok := ctx.Value(callerContextKey).(Caller); ok {
		return caller
	}
	return Caller{}
}
