package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNotConfigured is returned when the OAuth client id, secret or redirect
// URI is missing.
var ErrNotConfigured = errors.New("google oauth client is not configured")

// Config identifies the OAuth client registered with Google
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether every field needed for the consent flow is set.
func (c Config) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// OAuth2 returns the oauth2 configuration for the calendar scopes.
func (c Config) OAuth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  c.RedirectURL,
		Scopes:       CalendarScopes,
	}
}

// AuthURL returns the consent URL. Offline access with a forced consent
// prompt makes Google issue a refresh token every time.
func (c Config) AuthURL(state string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	return c.OAuth2().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for tokens.
func (c Config) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	token, err := c.OAuth2().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// NewHTTPClient returns an HTTP client that authenticates with token.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func NewHTTPClient(ctx context.Context, token *oauth2.Token) *http.Client {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			ForceAttemptHTTP2: false,
		}
	}

	return client
}
