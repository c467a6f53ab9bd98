package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DGISsoft/prodreport/api/auth"
	"github.com/DGISsoft/prodreport/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func plainError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

func token(t *testing.T, m *auth.JWTManager, role models.UserRole) string {
	t.Helper()
	tok, err := m.GenerateToken(&models.User{ID: primitive.NewObjectID(), Email: "a@x.com", Name: "Ann", Role: role})
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	var seen *auth.JWTClaims
	h := AuthMiddleware(manager, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClaimsFrom(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		query  string
		want   bool
	}{
		{name: "bearer header", header: "Bearer " + token(t, manager, models.UserRoleAdmin), want: true},
		{name: "query token", query: "token=" + token(t, manager, models.UserRoleViewer), want: true},
		{name: "no scheme", header: token(t, manager, models.UserRoleAdmin)},
		{name: "garbage", header: "Bearer nope"},
		{name: "anonymous"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, seen != nil)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequirePermission(models.ActionReviewReport, plainError)(ok)

	serve := func(claims *auth.JWTClaims) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if claims != nil {
			req = req.WithContext(WithClaims(req.Context(), claims))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(nil))
	assert.Equal(t, http.StatusForbidden, serve(&auth.JWTClaims{Role: models.UserRoleReporter}))
	assert.Equal(t, http.StatusNoContent, serve(&auth.JWTClaims{Role: models.UserRoleAdmin}))
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(plainError)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
