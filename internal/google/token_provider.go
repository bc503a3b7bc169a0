package google

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

// defaultTokenLifetime is assumed when a refreshed token carries no expiry.
const defaultTokenLifetime = time.Hour

// refreshThreshold refreshes tokens that expire within this window.
const refreshThreshold = time.Minute

// TokenProvider returns a usable access token for an owner
type TokenProvider interface {
	Token(ctx context.Context, owner string) (*oauth2.Token, error)
}

// RefreshingTokenProvider loads tokens from a TokenStore and refreshes
// expired ones, persisting the result before returning it. Refreshes for the
// same owner are serialized.
type RefreshingTokenProvider struct {
	store   TokenStore
	config  *oauth2.Config
	now     func() time.Time
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRefreshingTokenProvider creates a provider. config supplies the token
// endpoint and client credentials used for refreshes.
func NewRefreshingTokenProvider(store TokenStore, config *oauth2.Config, logger *slog.Logger, metrics *instrumentation.Metrics) *RefreshingTokenProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshingTokenProvider{
		store:   store,
		config:  config,
		now:     time.Now,
		logger:  logger,
		metrics: metrics,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (p *RefreshingTokenProvider) ownerLock(owner string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[owner]
	if !ok {
		l = &sync.Mutex{}
		p.locks[owner] = l
	}
	return l
}

// Token returns the owner's token, refreshing it first when it has expired.
// ErrNoToken means the owner never connected Google Calendar or holds an
// expired token that cannot be refreshed.
func (p *RefreshingTokenProvider) Token(ctx context.Context, owner string) (*oauth2.Token, error) {
	l := p.ownerLock(owner)
	l.Lock()
	defer l.Unlock()

	token, err := p.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if !p.expired(token) {
		return token, nil
	}
	if token.RefreshToken == "" {
		return nil, ErrNoToken
	}

	start := time.Now()
	refreshed, err := p.refresh(ctx, token)
	if err != nil {
		p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		p.logger.Warn("google token refresh failed", logging.Owner(owner), logging.Err(err))
		return nil, err
	}
	p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)

	if err := p.store.Save(ctx, owner, refreshed); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	p.logger.Debug("google token refreshed", logging.Owner(owner), logging.Duration(time.Since(start)))

	return refreshed, nil
}

func (p *RefreshingTokenProvider) expired(token *oauth2.Token) bool {
	if token.Expiry.IsZero() {
		return false
	}
	return p.now().Add(refreshThreshold).After(token.Expiry)
}

func (p *RefreshingTokenProvider) refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	// Force a round trip: the token source would otherwise trust its own clock.
	stale := &oauth2.Token{RefreshToken: token.RefreshToken, Expiry: time.Unix(1, 0)}
	fresh, err := p.config.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	out := &oauth2.Token{
		AccessToken:  fresh.AccessToken,
		TokenType:    fresh.TokenType,
		RefreshToken: fresh.RefreshToken,
		Expiry:       fresh.Expiry,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = token.RefreshToken
	}
	if out.Expiry.IsZero() {
		out.Expiry = p.now().Add(defaultTokenLifetime)
	}
	return out, nil
}
