package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mgoubin/screendrop/internal/database"
	"github.com/mgoubin/screendrop/internal/models"
)

// UserContextKey is the request context key the authenticated user is
// stored under.
const UserContextKey = "user"

// sessionToken extracts the session token from the session cookie or,
// failing that, an Authorization Bearer header.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie("session"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}

	return ""
}

// UserAuth resolves the session token into a user and stores it in the
// request context. Requests without a valid session get a 401.
func UserAuth(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				slog.Warn("authentication failed - no session token",
					"path", r.URL.Path,
					"ip", getClientIP(r),
				)
				writeUnauthorized(w)
				return
			}

			user, err := database.GetSessionUser(db, token)
			if err != nil {
				slog.Error("failed to validate session",
					"error", err,
					"ip", getClientIP(r),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(models.ErrorResponse{
					Status:  "error",
					Message: "Internal server error",
					Code:    "INTERNAL_ERROR",
				})
				return
			}

			if user == nil {
				slog.Warn("authentication failed - invalid or expired session",
					"path", r.URL.Path,
					"ip", getClientIP(r),
				)
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Status:  "error",
		Message: "Unauthorized",
		Code:    "UNAUTHORIZED",
	})
}

// UserFromContext returns the authenticated user stored by UserAuth,
// or nil when the request was not authenticated.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserContextKey).(*models.User)
	return user
}
