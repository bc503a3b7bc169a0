package google

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StateTTL bounds how long a consent flow may take.
const StateTTL = 10 * time.Minute

const stateAudience = "google-calendar-oauth"

// ErrInvalidState is returned for a state that is malformed, forged or expired.
var ErrInvalidState = errors.New("invalid oauth state")

// StateSigner issues and verifies the OAuth state parameter. The state is an
// HS256 JWT carrying the owner id, so the callback can attribute the tokens
// without a server-side session.
type StateSigner struct {
	secret []byte
	now    func() time.Time
}

// NewStateSigner creates a signer. The secret must not be empty.
func NewStateSigner(secret string) (*StateSigner, error) {
	if secret == "" {
		return nil, errors.New("state secret is required")
	}
	return &StateSigner{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns a state token for owner.
func (s *StateSigner) Sign(owner string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   owner,
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(StateTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Verify checks state and returns the owner it was issued for.
func (s *StateSigner) Verify(state string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidState
	}
	return claims.Subject, nil
}
