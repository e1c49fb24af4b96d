//
//
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ContextKey is used for storing claims in request context.
type ContextKey string

const (
	ClaimsKey ContextKey = "claims"
)

// anonymous is returned when auth is disabled.
var anonymous = &Claims{Subject: "anonymous"}

// Middleware authorizes requests against a verifier. A nil verifier disables
// authorization and every request is treated as anonymous.
type Middleware struct {
	verifier *Verifier
}

// NewMiddleware creates a middleware with auth disabled.
func NewMiddleware() *Middleware {
	return &Middleware{}
}

// NewMiddlewareWithVerifier creates a new auth middleware with a JWT verifier.
func NewMiddlewareWithVerifier(verifier *Verifier) *Middleware {
	return &Middleware{
		verifier: verifier,
	}
}

// Enabled reports whether tokens are checked.
func (m *Middleware) Enabled() bool {
	return m.verifier != nil
}

// Authorize extracts and verifies the request token and checks scope.
func (m *Middleware) Authorize(r *http.Request, scope string) (*Claims, error) {
	if m.verifier == nil {
		return anonymous, nil
	}

	token, err := extractToken(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	claims, err := m.verifier.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	if scope != "" && !claims.HasScope(scope) {
		return nil, fmt.Errorf("%w: scope %q required", ErrForbidden, scope)
	}

	return claims, nil
}

// extractToken reads the bearer token from the Authorization header or the
// token query parameter.
func extractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return "", fmt.Errorf("invalid Authorization header format")
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return "", fmt.Errorf("empty token")
		}
		return token, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	return "", fmt.Errorf("missing token")
}

// WithClaims stores claims in ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// ClaimsFromContext extracts claims from ctx.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}
