package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "ledger-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthenticatorMiddleware(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{
		Enabled:       true,
		HMACSecret:    testSecret,
		Issuer:        "ops",
		Audience:      "payledger",
		OptionalPaths: []string{"/healthz"},
	}, nil)
	var scopes []string
	handler := auth.Middleware("ledger:write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scopes = ScopesFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	exp := time.Now().Add(time.Hour).Unix()

	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{name: "optional path", path: "/healthz", want: http.StatusOK},
		{name: "missing token", path: "/", want: http.StatusUnauthorized},
		{name: "garbage token", path: "/", header: "Bearer nope", want: http.StatusUnauthorized},
		{
			name:   "wrong issuer",
			path:   "/",
			header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "other", "aud": "payledger", "exp": exp, "scope": "ledger:write"}),
			want:   http.StatusUnauthorized,
		},
		{
			name:   "missing scope",
			path:   "/",
			header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "ops", "aud": "payledger", "exp": exp, "scope": "ledger:read"}),
			want:   http.StatusForbidden,
		},
		{
			name:   "expired",
			path:   "/",
			header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "ops", "aud": "payledger", "exp": time.Now().Add(-time.Hour).Unix(), "scope": "ledger:write"}),
			want:   http.StatusUnauthorized,
		},
		{
			name:   "valid",
			path:   "/",
			header: "Bearer " + signToken(t, jwt.MapClaims{"iss": "ops", "aud": []string{"payledger"}, "exp": exp, "scope": "ledger:read ledger:write"}),
			want:   http.StatusOK,
		},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, res.Code)
		}
	}
	if len(scopes) != 2 {
		t.Fatalf("expected scopes from the valid token, got %v", scopes)
	}
}

func TestAuthenticatorDisabled(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{}, nil)
	handler := auth.Middleware("anything")(okHandler())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("disabled auth must pass requests, got %d", res.Code)
	}
}

func TestExtractBearer(t *testing.T) {
	if got := extractBearer("bearer abc"); got != "abc" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := extractBearer("Basic abc"); got != "" {
		t.Fatalf("expected non-bearer scheme to be ignored, got %q", got)
	}
}
