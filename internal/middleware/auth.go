// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a type for context keys.
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user ID.
	UserIDKey ContextKey = "user_id"
	// TierKey is the context key for the user's membership tier.
	TierKey ContextKey = "tier"
	// AdminKey is the context key for the admin flag.
	AdminKey ContextKey = "is_admin"
)

// Claims represents session JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Tier    string `json:"tier"`
	IsAdmin bool   `json:"is_admin"`
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"AUTH_ERROR","message":"` + message + `"}`))
}

// Auth creates JWT authentication middleware. Tokens must be HMAC-signed
// bearer tokens; the subject claim carries the user ID.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				unauthorized(w, "invalid authorization header format")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})

			if err != nil || !token.Valid || claims.Subject == "" {
				unauthorized(w, "invalid or expired session token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, TierKey, claims.Tier)
			ctx = context.WithValue(ctx, AdminKey, claims.IsAdmin)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID gets the authenticated user ID from context.
func GetUserID(ctx context.Context) string {
	if v, ok := ctx.Value(UserIDKey).(string); ok {
		return v
	}
	return ""
}

// GetTier gets the membership tier from context.
func GetTier(ctx context.Context) string {
	if v, ok := ctx.Value(TierKey).(string); ok {
		return v
	}
	return ""
}

// IsAdmin reports whether the context belongs to an admin session.
func IsAdmin(ctx context.Context) bool {
	if v, ok := ctx.Value(AdminKey).(bool); ok {
		return v
	}
	return false
}

// RequireAdmin creates middleware that rejects non-admin sessions.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdmin(r.Context()) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"FORBIDDEN","message":"admin access required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
