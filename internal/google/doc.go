// Package google holds the Google OAuth plumbing used by the calendar bridge:
// the OAuth2 client configuration, signed state tokens for the consent flow,
// encrypted per-owner token storage and a refreshing token provider.
package google
