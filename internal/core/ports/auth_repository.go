package ports

import (
	"context"

	"github.com/excavator/rental-api/internal/core/domain"
)

// CredentialStore persists user records for the auth core.
type CredentialStore interface {
	// Create inserts a new user and returns it with ID and timestamps set.
	// Returns domain.ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// UpdateRefreshToken replaces the stored refresh token digest. A nil
	// digest ends the user's refreshable session.
	UpdateRefreshToken(ctx context.Context, id string, tokenHash *string) error
}
