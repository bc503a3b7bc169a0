package google

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/todoagent/internal/database"
)

// ErrNoToken is returned when an owner has no usable Google Calendar token.
var ErrNoToken = errors.New("no google token for owner")

// TokenStore persists one Google token per owner
type TokenStore interface {
	Load(ctx context.Context, owner string) (*oauth2.Token, error)
	Save(ctx context.Context, owner string, token *oauth2.Token) error
	Delete(ctx context.Context, owner string) error
}

// MemoryTokenStore keeps tokens in process memory
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]oauth2.Token
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]oauth2.Token)}
}

// Load returns a copy of the owner's token.
func (s *MemoryTokenStore) Load(_ context.Context, owner string) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[owner]
	if !ok {
		return nil, ErrNoToken
	}
	return &t, nil
}

// Save stores a copy of token.
func (s *MemoryTokenStore) Save(_ context.Context, owner string, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[owner] = *token
	return nil
}

// Delete forgets the owner's token.
func (s *MemoryTokenStore) Delete(_ context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, owner)
	return nil
}

// SQLTokenStore keeps tokens in the calendar_tokens table, encrypted at rest
type SQLTokenStore struct {
	db  *database.DB
	enc *TokenEncryption
	now func() time.Time
}

// NewSQLTokenStore creates a database-backed store. enc may be nil to store
// plaintext.
func NewSQLTokenStore(db *database.DB, enc *TokenEncryption) *SQLTokenStore {
	return &SQLTokenStore{db: db, enc: enc, now: time.Now}
}

type tokenRow struct {
	AccessToken  string     `db:"access_token"`
	RefreshToken string     `db:"refresh_token"`
	TokenType    string     `db:"token_type"`
	Expiry       *time.Time `db:"expiry"`
}

// Load reads and decrypts the owner's token.
func (s *SQLTokenStore) Load(ctx context.Context, owner string) (*oauth2.Token, error) {
	var row tokenRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT access_token, refresh_token, token_type, expiry
FROM calendar_tokens WHERE owner_id = ?`), owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	access, err := s.enc.Decrypt(row.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	refresh, err := s.enc.Decrypt(row.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    row.TokenType,
	}
	if row.Expiry != nil {
		token.Expiry = *row.Expiry
	}
	return token, nil
}

// Save encrypts and upserts the owner's token.
func (s *SQLTokenStore) Save(ctx context.Context, owner string, token *oauth2.Token) error {
	access, err := s.enc.Encrypt(token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refresh, err := s.enc.Encrypt(token.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	var expiry *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiry = &e
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO calendar_tokens (owner_id, access_token, refresh_token, token_type, expiry, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (owner_id) DO UPDATE SET
  access_token = excluded.access_token,
  refresh_token = excluded.refresh_token,
  token_type = excluded.token_type,
  expiry = excluded.expiry,
  updated_at = excluded.updated_at`),
		owner, access, refresh, token.TokenType, expiry, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Delete removes the owner's token.
func (s *SQLTokenStore) Delete(ctx context.Context, owner string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM calendar_tokens WHERE owner_id = ?`), owner); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
