package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/todoagent/internal/apperrors"
)

func TestVerifier(t *testing.T) {
	_, err := NewVerifier("")
	require.Error(t, err)

	v, err := NewVerifier("jwt-secret", WithAudience("authenticated"))
	require.NoError(t, err)

	token, err := v.Sign(Identity{Owner: "user-1", Email: "ana@example.com"}, time.Hour)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{Owner: "user-1", Email: "ana@example.com"}, id)

	t.Run("expired", func(t *testing.T) {
		expired, err := v.Sign(Identity{Owner: "user-1"}, -time.Minute)
		require.NoError(t, err)
		_, err = v.Verify(expired)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewVerifier("other", WithAudience("authenticated"))
		require.NoError(t, err)
		_, err = other.Verify(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Verify(none)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("missing subject", func(t *testing.T) {
		anon, err := v.Sign(Identity{}, time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(anon)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{header: "Bearer abc", token: "abc", ok: true},
		{header: "bearer  abc ", token: "abc", ok: true},
		{header: "Basic abc", ok: false},
		{header: "Bearer", ok: false},
		{header: "", ok: false},
	}
	for _, tt := range tests {
		token, ok := BearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

func TestMiddleware(t *testing.T) {
	v, err := NewVerifier("jwt-secret")
	require.NoError(t, err)

	var seen string
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := OwnerFromContext(r.Context())
		require.NoError(t, err)
		seen = owner
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"No autenticado"}`, rec.Body.String())

	token, err := v.Sign(Identity{Owner: "user-7"}, time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", seen)
}

func TestOwnerFromContext_Missing(t *testing.T) {
	_, err := OwnerFromContext(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.KindAuth))
}
