package ports

import (
	"context"
	"time"

	"github.com/excavator/rental-api/internal/core/domain"
)

// RegisterInput carries the fields accepted at sign-up.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// TokenPair is a freshly issued access/refresh pair. The refresh token is
// handed to the transport layer together with its expiry.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SignInResult is returned by a successful sign-in.
type SignInResult struct {
	TokenPair
	User *domain.User
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	SignIn(ctx context.Context, email, password string) (*SignInResult, error)
	Refresh(ctx context.Context, user *domain.User) (*TokenPair, error)
	Logout(ctx context.Context, userID string) error
}
