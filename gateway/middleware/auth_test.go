package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"tipchain/crypto"
)

func callerEcho(t *testing.T, want [20]byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFrom(r.Context())
		if !ok {
			t.Fatalf("caller missing from context")
		}
		if caller != want {
			t.Fatalf("caller = %x, want %x", caller, want)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticatorAcceptsIssuedToken(t *testing.T) {
	var caller [20]byte
	caller[19] = 7
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "s3cret", Issuer: "tipd", Audience: "tipchain"}, nil)
	token, err := IssueToken("s3cret", caller, "tipd", "tipchain", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/tips", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	auth.Middleware()(callerEcho(t, caller)).ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
}

func TestAuthenticatorRejectsBadTokens(t *testing.T) {
	var caller [20]byte
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: "s3cret", Issuer: "tipd"}, nil)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})

	wrongSecret, _ := IssueToken("other", caller, "tipd", "", time.Minute)
	wrongIssuer, _ := IssueToken("s3cret", caller, "elsewhere", "", time.Minute)
	expired, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   crypto.FromRaw(caller).String(),
		Issuer:    "tipd",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("s3cret"))
	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-an-address",
		Issuer:    "tipd",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("s3cret"))

	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"wrong secret": "Bearer " + wrongSecret,
		"wrong issuer": "Bearer " + wrongIssuer,
		"expired":      "Bearer " + expired,
		"bad subject":  "Bearer " + badSubject,
	} {
		req := httptest.NewRequest(http.MethodPost, "/v1/tips", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		res := httptest.NewRecorder()
		auth.Middleware()(next).ServeHTTP(res, req)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, res.Code)
		}
	}
}

func TestAuthenticatorDisabledUsesCallerHeader(t *testing.T) {
	var caller [20]byte
	caller[0] = 0xAA
	auth := NewAuthenticator(AuthConfig{Enabled: false}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/agents", nil)
	req.Header.Set("X-Tip-Caller", crypto.FromRaw(caller).String())
	res := httptest.NewRecorder()
	auth.Middleware()(callerEcho(t, caller)).ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	auth.Middleware()(callerEcho(t, caller)).ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/agents", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without caller header, got %d", res.Code)
	}
}
