package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/excavator/rental-api/internal/core/domain"
	"github.com/excavator/rental-api/internal/core/ports"
	"github.com/excavator/rental-api/internal/infrastructure/metrics"
	"github.com/excavator/rental-api/pkg/logger"
)

// IdentityFinder resolves the subject of a verified token.
type IdentityFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// IdentityGuard authenticates a request from a bearer token or a refresh
// cookie and attaches the resolved user to the context.
type IdentityGuard struct {
	name    string
	kind    domain.TokenKind
	tokens  ports.TokenIssuer
	users   IdentityFinder
	extract func(c echo.Context) (string, error)
	log     zerolog.Logger
}

// NewAccessGuard reads the access token from the Authorization header.
func NewAccessGuard(tokens ports.TokenIssuer, users IdentityFinder, log zerolog.Logger) *IdentityGuard {
	return &IdentityGuard{
		name:    "access",
		kind:    domain.TokenAccess,
		tokens:  tokens,
		users:   users,
		extract: bearerToken,
		log:     log,
	}
}

// NewRefreshGuard reads the refresh token from the named cookie. users must
// return the stored refresh digest, so it cannot be the identity cache.
func NewRefreshGuard(tokens ports.TokenIssuer, users IdentityFinder, cookieName string, log zerolog.Logger) *IdentityGuard {
	return &IdentityGuard{
		name:    "refresh",
		kind:    domain.TokenRefresh,
		tokens:  tokens,
		users:   users,
		extract: cookieToken(cookieName),
		log:     log,
	}
}

func (g *IdentityGuard) CanActivate(c echo.Context) error {
	user, err := g.authenticate(c)
	if err != nil {
		metrics.GuardDecisionsTotal.WithLabelValues(g.name, "deny").Inc()
		l := logger.FromContext(c.Request().Context(), g.log)
		l.Debug().
			Err(err).
			Str("guard", g.name).
			Str("path", c.Path()).
			Msg("identity rejected")
		return err
	}

	metrics.GuardDecisionsTotal.WithLabelValues(g.name, "allow").Inc()
	SetUser(c, user)

	req := c.Request()
	l := logger.FromContext(req.Context(), g.log).With().Str("user_id", user.ID).Logger()
	c.SetRequest(req.WithContext(logger.WithContext(req.Context(), l)))
	return nil
}

func (g *IdentityGuard) authenticate(c echo.Context) (*domain.User, error) {
	raw, err := g.extract(c)
	if err != nil {
		return nil, err
	}

	claims, err := g.tokens.Verify(raw, g.kind)
	if err != nil {
		return nil, err
	}

	user, err := g.users.FindByID(c.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("%s guard: %w", g.name, domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s guard: %w: %w", g.name, domain.ErrInternal, err)
	}

	if g.kind == domain.TokenRefresh {
		if !user.HasRefreshSession() {
			return nil, domain.ErrRefreshRevoked
		}
		if !domain.MatchesDigest(raw, *user.RefreshTokenHash) {
			return nil, domain.ErrRefreshReused
		}
	}
	return user, nil
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return "", fmt.Errorf("missing authorization header: %w", domain.ErrUnauthenticated)
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("malformed authorization header: %w", domain.ErrUnauthenticated)
	}
	return strings.TrimSpace(parts[1]), nil
}

func cookieToken(name string) func(c echo.Context) (string, error) {
	return func(c echo.Context) (string, error) {
		cookie, err := c.Cookie(name)
		if err != nil {
			if errors.Is(err, http.ErrNoCookie) {
				return "", fmt.Errorf("missing %s cookie: %w", name, domain.ErrUnauthenticated)
			}
			return "", fmt.Errorf("read %s cookie: %w", name, domain.ErrUnauthenticated)
		}
		if cookie.Value == "" {
			return "", fmt.Errorf("empty %s cookie: %w", name, domain.ErrUnauthenticated)
		}
		return cookie.Value, nil
	}
}
