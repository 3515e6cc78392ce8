package middleware

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var secret = []byte("test-secret")

func echoIdentity(t *testing.T) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		_, _ = rw.Write([]byte(id.UserID + "/" + string(id.Role)))
	})
}

func TestAuth(t *testing.T) {
	valid, err := IssueToken(secret, "user-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(secret, "user-1", RoleUser, -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other"), "user-1", RoleUser, time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Role: RoleUser}).SignedString(secret)
	require.NoError(t, err)
	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{Role: "root",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}).SignedString(secret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		cookie string
		status int
		body   string
	}{
		{name: "bearer", header: "Bearer " + valid, status: http.StatusOK, body: "user-1/admin"},
		{name: "cookie", cookie: valid, status: http.StatusOK, body: "user-1/admin"},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + expired, status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + foreign, status: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + noSubject, status: http.StatusUnauthorized},
		{name: "unknown role", header: "Bearer " + badRole, status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: authCookie, Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			Auth(secret)(echoIdentity(t)).ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestParseToken_DefaultsToUserRole(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-5"}}).SignedString(secret)
	require.NoError(t, err)
	id, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u-5", Role: RoleUser}, id)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(RoleAdmin)(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req.WithContext(WithIdentity(req.Context(), Identity{UserID: "u", Role: RoleUser})))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req.WithContext(WithIdentity(req.Context(), Identity{UserID: "a", Role: RoleAdmin})))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
