package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/teemow/todoagent/internal/apperrors"
)

type contextKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored in ctx, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.Owner != ""
}

// OwnerFromContext returns the owner id or an auth error.
func OwnerFromContext(ctx context.Context) (string, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", apperrors.Auth("No autenticado")
	}
	return id.Owner, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IdentityFromRequest verifies the request's bearer token. A nil verifier
// never authenticates.
func (v *Verifier) IdentityFromRequest(r *http.Request) (Identity, error) {
	if v == nil {
		return Identity{}, ErrInvalidToken
	}
	token, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Identity{}, ErrInvalidToken
	}
	return v.Verify(token)
}

// Middleware rejects requests without a valid bearer token with 401 and
// stores the identity in the request context otherwise.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := v.IdentityFromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "No autenticado"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
