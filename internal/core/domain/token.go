package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"
)

// TokenKind separates short-lived access tokens from long-lived refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// TokenClaims is the verified payload of a signed token.
type TokenClaims struct {
	ID        string
	Subject   string
	Email     string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedToken is a freshly signed token together with its expiry.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// DigestToken returns the hex SHA-256 of a token. Refresh tokens are stored
// as digests so a leaked user record cannot be replayed as a cookie.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MatchesDigest compares token against a stored digest in constant time.
func MatchesDigest(token, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(DigestToken(token)), []byte(digest)) == 1
}
