package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/medtrack/medtrack-go/internal/crypto"
)

type contextKey string

const userIDKey contextKey = "userID"

// UserLookup reports whether a token subject may still authenticate.
type UserLookup interface {
	IsActive(ctx context.Context, userID int64) (bool, error)
}

// JWTAuth returns middleware that validates a Bearer token from the
// Authorization header and rejects tokens of deleted or inactive users.
func JWTAuth(secret string, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "authentication credentials were not provided")
				return
			}

			token, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || token == "" {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			claims, err := crypto.ValidateToken(token, secret)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			active, err := users.IsActive(r.Context(), claims.UserID)
			if err != nil {
				slog.Error("user lookup failed", "user_id", claims.UserID, "error", err)
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !active {
				writeJSONError(w, http.StatusUnauthorized, "user inactive or deleted")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}

// WithUserID stores the authenticated user ID on ctx.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
