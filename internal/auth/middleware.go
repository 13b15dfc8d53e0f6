package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
)

type contextKey string

// IdentityKey is the context key used to store the authenticated user.
const IdentityKey contextKey = "identity"

var errInvalidAuthHeader = errors.New("invalid Authorization header format")

// ParseBearer extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is case-insensitive (RFC 7235).
func ParseBearer(header string) (string, error) {
	fields := strings.Fields(header)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Bearer") {
		return "", errInvalidAuthHeader
	}

	token := strings.TrimSpace(strings.Join(fields[1:], " "))
	if token == "" {
		return "", errInvalidAuthHeader
	}
	return token, nil
}

// RequireAuth checks for a valid bearer token and stores the user's identity in
// the request context for downstream handlers. Browsers cannot set headers on a
// WebSocket upgrade, so a "token" query parameter is accepted as a fallback.
// Returns 401 Unauthorized if authentication fails.
func RequireAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := tokenFromRequest(r)
			if err != nil {
				log.Printf("Auth: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			identity, err := validator.Validate(token)
			if err != nil {
				log.Printf("Auth: Token validation failed: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the authenticated user from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)
	return identity, ok
}

func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		return ParseBearer(header)
	}
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token, nil
	}
	return "", errors.New("no Authorization header present")
}
