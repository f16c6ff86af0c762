// ABOUTME: Request identity carried through HTTP handlers
// ABOUTME: Provides WithAuth/FromContext for the API key or admin subject of a request

package auth

import (
	"context"
)

// AuthContext describes who made a request. Exactly one of KeyPrefix or
// AdminSubject is set.
type AuthContext struct {
	KeyPrefix    string // public prefix of the API key
	KeyName      string
	AdapterName  string // adapter the key is bound to, if any
	AdminSubject string // subject of a verified admin token
}

// IsAdmin reports whether the request carried a valid admin token.
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.AdminSubject != ""
}

// HasAPIKey reports whether the request carried a valid API key.
func (a *AuthContext) HasAPIKey() bool {
	return a != nil && a.KeyPrefix != ""
}

type authContextKey struct{}

// WithAuth returns a new context with the AuthContext attached.
func WithAuth(ctx context.Context, auth *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// FromContext retrieves the AuthContext from the context, returning nil if not present.
func FromContext(ctx context.Context) *AuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return auth
}

// KeyPrefixFromContext returns the API key prefix of the request, or "".
func KeyPrefixFromContext(ctx context.Context) string {
	if a := FromContext(ctx); a != nil {
		return a.KeyPrefix
	}
	return ""
}
