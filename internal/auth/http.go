// ABOUTME: HTTP middleware for JWT authentication on admin endpoints
// ABOUTME: Extracts JWT from Authorization header, re-reads the admin and adds it to context

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/picco-crm/picco/internal/store"
)

// AdminLookup resolves the admin named by a token's subject.
type AdminLookup interface {
	GetAdmin(ctx context.Context, id string) (*store.Admin, error)
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RequireAdmin creates an HTTP middleware that verifies the bearer token and
// re-reads the admin from the store, so deleted admins lose access at once.
// The stored role, not the token's, decides privileges.
func RequireAdmin(admins AdminLookup, verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
			if errMsg != "" {
				writeAuthError(w, http.StatusUnauthorized, errMsg)
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, ErrExpiredToken) {
					msg = "token expired"
				}
				writeAuthError(w, http.StatusUnauthorized, msg)
				return
			}

			admin, err := admins.GetAdmin(r.Context(), claims.Subject)
			if errors.Is(err, store.ErrNotFound) {
				writeAuthError(w, http.StatusUnauthorized, "admin not found")
				return
			}
			if err != nil {
				logger.Error("failed to load admin", "admin_id", claims.Subject, "error", err)
				writeAuthError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if !admin.Role.Valid() {
				writeAuthError(w, http.StatusForbidden, "admin role required")
				return
			}

			authCtx := &AuthContext{AdminID: admin.ID, Username: admin.Username, Role: admin.Role}
			next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
		})
	}
}

// RequireSuperAdmin creates an HTTP middleware that requires the super-admin role.
// Must be used after RequireAdmin.
func RequireSuperAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := FromContext(r.Context())
			if authCtx == nil {
				writeAuthError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			if !authCtx.IsSuperAdmin() {
				writeAuthError(w, http.StatusForbidden, "super-admin role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
