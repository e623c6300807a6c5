package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/excavator/rental-api/internal/core/domain"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// JWTConfig holds the signing material for both token kinds.
type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// claims is the signed payload shared by access and refresh tokens.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Kind  string `json:"kind"`
}

// JWTIssuer implements ports.TokenIssuer with HS256 and one secret per token kind.
type JWTIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewJWTIssuer validates cfg and builds an issuer. Zero TTLs fall back to
// 15 minutes and 7 days.
func NewJWTIssuer(cfg JWTConfig) (*JWTIssuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("jwt: access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("jwt: access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &JWTIssuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}, nil
}

// WithClock replaces the time source used for issuing and verifying.
func (j *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	j.now = now
	return j
}

func (j *JWTIssuer) IssueAccessToken(user *domain.User) (domain.IssuedToken, error) {
	return j.issue(user, domain.TokenAccess)
}

func (j *JWTIssuer) IssueRefreshToken(user *domain.User) (domain.IssuedToken, error) {
	return j.issue(user, domain.TokenRefresh)
}

func (j *JWTIssuer) issue(user *domain.User, kind domain.TokenKind) (domain.IssuedToken, error) {
	if user == nil || user.ID == "" {
		return domain.IssuedToken{}, fmt.Errorf("sign %s token: missing subject", kind)
	}
	secret, ttl := j.material(kind)

	now := j.now()
	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Kind:  string(kind),
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return domain.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

func (j *JWTIssuer) Verify(tokenString string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	if kind != domain.TokenAccess && kind != domain.TokenRefresh {
		return nil, fmt.Errorf("verify: unknown token kind %q", kind)
	}
	secret, _ := j.material(kind)

	c := &claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, c, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	if c.Kind != string(kind) {
		return nil, domain.ErrTokenKindMismatch
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrTokenInvalid)
	}

	out := &domain.TokenClaims{
		ID:      c.ID,
		Subject: c.Subject,
		Email:   c.Email,
		Kind:    kind,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out, nil
}

func (j *JWTIssuer) material(kind domain.TokenKind) ([]byte, time.Duration) {
	if kind == domain.TokenRefresh {
		return j.refreshSecret, j.refreshTTL
	}
	return j.accessSecret, j.accessTTL
}
