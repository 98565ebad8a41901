package auth

import (
	"context"
	"gramm/utils"
	"net/http"
	"strings"
)

type contextKey struct{}

// WithUser stores the authenticated user id in ctx.
func WithUser(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(ctx context.Context) uint {
	id, _ := ctx.Value(contextKey{}).(uint)
	return id
}

// Middleware authenticates bearer tokens. Requests without a token pass
// through anonymously; requests with a bad one are rejected with 401.
func (t *Tokens) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := t.Parse(tokenString)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}
		userID, _ := claims.UserID()
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
	})
}

// Required rejects anonymous requests.
func Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) == 0 {
			unauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write(utils.ToJson(map[string]string{"error": message}))
}
