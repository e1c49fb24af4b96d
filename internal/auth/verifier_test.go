package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{SecretKey: "test-secret-key", Issuer: "rover-relay"})
	if err != nil {
		t.Fatalf("NewVerifier() failed: %v", err)
	}
	return v
}

func TestNewVerifier(t *testing.T) {
	if _, err := NewVerifier(VerifierConfig{}); err == nil {
		t.Error("Expected error without secret")
	}
	if _, err := NewVerifier(VerifierConfig{SecretKey: "s"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestIssueAndVerify(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.IssueToken("operator", []string{ScopeControl, ScopeTelemetry}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() failed: %v", err)
	}

	claims, err := v.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() failed: %v", err)
	}
	if claims.Subject != "operator" {
		t.Errorf("Expected subject operator, got %s", claims.Subject)
	}
	if !claims.HasScope(ScopeControl) || claims.HasScope(ScopeDevice) {
		t.Errorf("Unexpected scopes: %v", claims.Scopes)
	}
}

func TestVerifyTokenRejects(t *testing.T) {
	v := newTestVerifier(t)
	secret := []byte("test-secret-key")

	sign := func(method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() failed: %v", err)
		}
		return s
	}

	expired := tokenClaims{
		Scopes: []string{ScopeControl},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			Issuer:    "rover-relay",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	wrongIssuer := tokenClaims{
		Scopes:           []string{ScopeControl},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "operator", Issuer: "someone-else"},
	}
	noSubject := tokenClaims{
		Scopes:           []string{ScopeControl},
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "rover-relay"},
	}
	badScope := tokenClaims{
		Scopes:           []string{"admin"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "operator", Issuer: "rover-relay"},
	}
	good := tokenClaims{
		Scopes:           []string{ScopeControl},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "operator", Issuer: "rover-relay"},
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"expired", sign(jwt.SigningMethodHS256, secret, expired)},
		{"wrong issuer", sign(jwt.SigningMethodHS256, secret, wrongIssuer)},
		{"no subject", sign(jwt.SigningMethodHS256, secret, noSubject)},
		{"unknown scope", sign(jwt.SigningMethodHS256, secret, badScope)},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("other"), good)},
		{"wrong algorithm", sign(jwt.SigningMethodHS384, secret, good)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.VerifyToken(tt.token); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("VerifyToken() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	v := newTestVerifier(t)
	m := NewMiddlewareWithVerifier(v)

	controlToken, err := v.IssueToken("browser", []string{ScopeControl}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() failed: %v", err)
	}

	tests := []struct {
		name    string
		target  string
		header  string
		scope   string
		wantErr error
	}{
		{"header token", "/control", "Bearer " + controlToken, ScopeControl, nil},
		{"query token", "/control?token=" + controlToken, "", ScopeControl, nil},
		{"missing scope", "/distance?token=" + controlToken, "", ScopeTelemetry, ErrForbidden},
		{"no token", "/control", "", ScopeControl, ErrUnauthorized},
		{"bad header", "/control", "Basic abc", ScopeControl, ErrUnauthorized},
		{"empty bearer", "/control", "Bearer ", ScopeControl, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			claims, err := m.Authorize(r, tt.scope)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Authorize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authorize() unexpected error: %v", err)
			}
			if claims.Subject != "browser" {
				t.Errorf("Expected subject browser, got %s", claims.Subject)
			}
		})
	}
}

func TestAuthorizeDisabled(t *testing.T) {
	m := NewMiddleware()
	if m.Enabled() {
		t.Error("Expected auth disabled without a verifier")
	}

	claims, err := m.Authorize(httptest.NewRequest("GET", "/pi_control", nil), ScopeDevice)
	if err != nil {
		t.Fatalf("Authorize() failed: %v", err)
	}
	if claims.Subject != "anonymous" {
		t.Errorf("Expected anonymous, got %s", claims.Subject)
	}
}

func TestClaimsContext(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if ClaimsFromContext(r.Context()) != nil {
		t.Error("Expected no claims on a fresh request")
	}

	ctx := WithClaims(r.Context(), &Claims{Subject: "x"})
	if got := ClaimsFromContext(ctx); got == nil || got.Subject != "x" {
		t.Errorf("ClaimsFromContext() = %+v", got)
	}
}
