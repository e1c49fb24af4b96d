package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope constants
const (
	ScopeControl   = "control"
	ScopeTelemetry = "telemetry"
	ScopeDevice    = "device"
)

// Verification errors.
var (
	ErrUnauthorized = errors.New("UNAUTHORIZED")
	ErrForbidden    = errors.New("FORBIDDEN")
)

// Claims represents the parsed token claims.
type Claims struct {
	Subject string   `json:"sub"`
	Scopes  []string `json:"scopes"`
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// VerifierConfig holds configuration for JWT verification.
type VerifierConfig struct {
	SecretKey string
	Issuer    string        // required issuer, empty accepts any
	Leeway    time.Duration // clock skew allowance
}

// Verifier checks HS256 tokens.
type Verifier struct {
	config VerifierConfig
}

// NewVerifier creates a new JWT verifier.
func NewVerifier(config VerifierConfig) (*Verifier, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("HS256 requires secret key")
	}
	return &Verifier{config: config}, nil
}

type tokenClaims struct {
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// VerifyToken verifies a JWT token and returns the claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("%w: token cannot be empty", ErrUnauthorized)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(v.config.Leeway))
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(v.config.SecretKey), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse token: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing or invalid 'sub' claim", ErrUnauthorized)
	}
	if !validScopes(claims.Scopes) {
		return nil, fmt.Errorf("%w: invalid scopes: %v", ErrUnauthorized, claims.Scopes)
	}

	return &Claims{Subject: claims.Subject, Scopes: claims.Scopes}, nil
}

// IssueToken signs a token for subject with the given scopes. A zero ttl
// issues a token without expiry.
func (v *Verifier) IssueToken(subject string, scopes []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject required")
	}
	if !validScopes(scopes) {
		return "", fmt.Errorf("invalid scopes: %v", scopes)
	}

	now := time.Now()
	claims := tokenClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			Issuer:   v.config.Issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(v.config.SecretKey))
}

// validScopes validates that all scopes are known.
func validScopes(scopes []string) bool {
	valid := map[string]bool{
		ScopeControl:   true,
		ScopeTelemetry: true,
		ScopeDevice:    true,
	}

	for _, scope := range scopes {
		if !valid[scope] {
			return false
		}
	}

	return len(scopes) > 0
}
