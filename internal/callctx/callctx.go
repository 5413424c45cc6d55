// Package callctx binds per-call credential identity (key id, provider id)
// into the context so that downstream layers (retry classifier, error
// tracker) can tag events without threading identifiers through every
// signature. The binding is an immutable value scoped to the call.
package callctx

import "context"

type contextKey struct{}

// Info identifies the credential and provider behind a call.
type Info struct {
	// KeyID is the opaque credential identifier.
	KeyID int

	// ProviderID is the provider the credential belongs to.
	ProviderID int

	// RequestID correlates error-tracking records for one call.
	RequestID string
}

// With returns a context carrying the call info.
func With(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// From extracts the call info from the context.
// The second return is false when no info is bound.
func From(ctx context.Context) (Info, bool) {
	info, ok := ctx.Value(contextKey{}).(Info)
	return info, ok
}
