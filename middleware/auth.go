package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/DGISsoft/prodreport/api/auth"
	"github.com/DGISsoft/prodreport/models"
	"go.uber.org/zap"
)

type contextKey string

const UserContextKey contextKey = "user"

// TokenVerifier is satisfied by *auth.JWTManager.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.JWTClaims, error)
}

// ErrorWriter renders an authentication or authorization failure.
type ErrorWriter func(w http.ResponseWriter, status int, msg string)

// AuthMiddleware attaches the caller's claims to the request context. The
// token comes from the Authorization header, or from ?token= for streaming
// clients (EventSource, WebSocket) that cannot set headers. Requests without
// a valid token pass through anonymous; RequireAuth rejects them.
func AuthMiddleware(verifier TokenVerifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.VerifyToken(tokenString)
			if err != nil {
				log.Debug("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

func WithClaims(ctx context.Context, claims *auth.JWTClaims) context.Context {
	return context.WithValue(ctx, UserContextKey, claims)
}

// ClaimsFrom returns the authenticated caller, or nil.
func ClaimsFrom(ctx context.Context) *auth.JWTClaims {
	claims, _ := ctx.Value(UserContextKey).(*auth.JWTClaims)
	return claims
}

// RequireAuth answers 401 for anonymous requests.
func RequireAuth(write ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ClaimsFrom(r.Context()) == nil {
				write(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission answers 403 unless the caller's role may perform action.
func RequirePermission(action models.Action, write ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFrom(r.Context())
			if claims == nil {
				write(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !claims.Role.Can(action) {
				write(w, http.StatusForbidden, "role "+string(claims.Role)+" may not "+string(action))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
