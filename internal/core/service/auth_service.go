package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/excavator/rental-api/internal/core/domain"
	"github.com/excavator/rental-api/internal/core/ports"
	"github.com/excavator/rental-api/pkg/logger"
)

const (
	opRegister = "register"
	opSignIn   = "sign_in"
	opRefresh  = "refresh"
	opLogout   = "logout"
)

// timingPassword is hashed once and compared against when the email is
// unknown, so both sign-in failure paths pay for one bcrypt comparison.
const timingPassword = "timing-equaliser-9f4c"

// AuthService implements registration, sign-in, token refresh and logout.
type AuthService struct {
	store   ports.CredentialStore
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	metrics ports.AuthMetrics
	log     zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(store ports.CredentialStore, hasher ports.PasswordHasher, tokens ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{
		store:   store,
		hasher:  hasher,
		tokens:  tokens,
		metrics: noopMetrics{},
		log:     log.With().Str("component", "auth_service").Logger(),
	}
}

// WithMetrics replaces the counter sink. A nil m disables counting.
func (s *AuthService) WithMetrics(m ports.AuthMetrics) *AuthService {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
	return s
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	log := logger.FromContext(ctx, s.log)

	in.Email = strings.TrimSpace(in.Email)
	if in.Email == "" || in.Password == "" {
		s.record(opRegister, "invalid_input")
		return nil, domain.ErrInvalidInput
	}

	existing, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case err == nil && existing != nil:
		s.record(opRegister, "duplicate_email")
		return nil, domain.ErrDuplicateEmail
	case err != nil && !errors.Is(err, domain.ErrUserNotFound):
		s.record(opRegister, "internal")
		return nil, internal("register: lookup email", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, domain.ErrInvalidInput) {
		s.record(opRegister, "invalid_input")
		return nil, domain.ErrInvalidInput
	}
	if err != nil {
		s.record(opRegister, "internal")
		return nil, internal("register", err)
	}

	user := &domain.User{
		Email:        in.Email,
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}

	// The unique index is the backstop when two sign-ups race past the lookup.
	created, err := s.store.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			s.record(opRegister, "duplicate_email")
			return nil, domain.ErrDuplicateEmail
		}
		s.record(opRegister, "internal")
		return nil, internal("register: create user", err)
	}

	log.Info().Str("user_id", created.ID).Str("email", created.Email).Msg("user registered")
	s.record(opRegister, "ok")
	return publicView(created), nil
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*ports.SignInResult, error) {
	log := logger.FromContext(ctx, s.log)
	log.Debug().Str("email", email).Msg("sign in attempt")

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.record(opSignIn, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		s.equaliseTiming(password)
		log.Info().Str("email", email).Msg("sign in rejected")
		s.record(opSignIn, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		s.record(opSignIn, "internal")
		return nil, internal("sign in: lookup email", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.record(opSignIn, "internal")
		return nil, internal("sign in: verify password", err)
	}
	if !ok {
		log.Info().Str("email", email).Msg("sign in rejected")
		s.record(opSignIn, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		s.record(opSignIn, "internal")
		return nil, internal("sign in", err)
	}

	log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("user signed in")
	s.record(opSignIn, "ok")
	return &ports.SignInResult{TokenPair: *pair, User: publicView(user)}, nil
}

// Refresh rotates the token pair of a user already resolved from a valid,
// still-accepted refresh token.
func (s *AuthService) Refresh(ctx context.Context, user *domain.User) (*ports.TokenPair, error) {
	log := logger.FromContext(ctx, s.log)

	if user == nil || user.ID == "" {
		s.record(opRefresh, "unauthenticated")
		return nil, domain.ErrUnauthenticated
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		s.record(opRefresh, "internal")
		return nil, internal("refresh", err)
	}

	log.Info().Str("user_id", user.ID).Msg("tokens refreshed")
	s.record(opRefresh, "ok")
	return pair, nil
}

// Logout ends the refreshable session. Access tokens already issued stay
// valid until they expire. Calling it twice is harmless.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	log := logger.FromContext(ctx, s.log)

	if userID == "" {
		s.record(opLogout, "unauthenticated")
		return domain.ErrUnauthenticated
	}

	if err := s.store.UpdateRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.record(opLogout, "not_found")
			return domain.ErrUserNotFound
		}
		s.record(opLogout, "internal")
		return internal("logout", err)
	}

	log.Info().Str("user_id", userID).Msg("user logged out")
	s.record(opLogout, "ok")
	return nil
}

// issuePair signs a new access/refresh pair and stores the refresh digest,
// replacing whichever refresh token was live before.
func (s *AuthService) issuePair(ctx context.Context, user *domain.User) (*ports.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	s.metrics.TokenIssued(domain.TokenAccess)

	refresh, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	s.metrics.TokenIssued(domain.TokenRefresh)

	digest := domain.DigestToken(refresh.Value)
	if err := s.store.UpdateRefreshToken(ctx, user.ID, &digest); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &ports.TokenPair{
		AccessToken:      access.Value,
		RefreshToken:     refresh.Value,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

func (s *AuthService) equaliseTiming(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(timingPassword)
		if err != nil {
			s.log.Warn().Err(err).Msg("could not prepare timing hash")
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

// publicView returns a copy of u without credential material.
func publicView(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	view := *u
	view.PasswordHash = ""
	view.RefreshTokenHash = nil
	return &view
}

func internal(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrInternal, err)
}

func (s *AuthService) record(op, result string) {
	s.metrics.AuthOperation(op, result)
}

type noopMetrics struct{}

func (noopMetrics) AuthOperation(string, string) {}
func (noopMetrics) TokenIssued(domain.TokenKind) {}
