package ports

import "github.com/excavator/rental-api/internal/core/domain"

// TokenIssuer signs and verifies access and refresh tokens.
type TokenIssuer interface {
	IssueAccessToken(user *domain.User) (domain.IssuedToken, error)
	IssueRefreshToken(user *domain.User) (domain.IssuedToken, error)
	// Verify checks signature, structure and expiry with the secret that
	// belongs to kind, then checks the kind claim itself.
	Verify(token string, kind domain.TokenKind) (*domain.TokenClaims, error)
}

// PasswordHasher derives and checks one-way salted password hashes.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify returns (false, nil) on a plain mismatch and a non-nil error
	// only when the comparison itself could not be performed.
	Verify(plaintext, hash string) (bool, error)
}
