// Package auth verifies the bearer tokens issued by the identity provider
// and carries the resulting identity through request contexts.
//
// Tokens are HS256 JWTs whose subject is the owner id. Middleware rejects
// requests without a valid token; OwnerFromContext retrieves the owner in
// handlers and tools.
package auth
