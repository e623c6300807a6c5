package middleware

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/excavator/rental-api/internal/core/domain"
	"github.com/excavator/rental-api/internal/core/ports"
	"github.com/excavator/rental-api/internal/infrastructure/metrics"
	"github.com/excavator/rental-api/pkg/logger"
)

// RoleGuard admits only users holding a given role. It must run after an
// IdentityGuard. Every decision is logged, counted and handed to the audit
// recorder.
type RoleGuard struct {
	required domain.Role
	audit    ports.AuditRecorder
	log      zerolog.Logger
	now      func() time.Time
}

// RequireRole builds a RoleGuard for role. audit may be nil.
func RequireRole(role domain.Role, audit ports.AuditRecorder, log zerolog.Logger) *RoleGuard {
	return &RoleGuard{required: role, audit: audit, log: log, now: time.Now}
}

func (g *RoleGuard) CanActivate(c echo.Context) error {
	user, ok := UserFrom(c)
	if !ok {
		metrics.GuardDecisionsTotal.WithLabelValues("role", "deny").Inc()
		l := logger.FromContext(c.Request().Context(), g.log)
		l.Error().
			Str("operation", operation(c)).
			Msg("role guard reached without an authenticated user")
		return fmt.Errorf("role guard: %w", domain.ErrUnauthenticated)
	}

	// Roles outside the known set never match, even a guard built for one.
	allowed := user.Role.Valid() && user.Role == g.required
	decision := domain.AccessDecision{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		RequiredRole: g.required,
		IP:           c.RealIP(),
		Operation:    operation(c),
		Allowed:      allowed,
		RequestID:    c.Response().Header().Get(echo.HeaderXRequestID),
		Timestamp:    g.now().UTC(),
	}
	switch {
	case !user.Role.Valid():
		decision.Reason = "unknown role " + string(user.Role)
	case !allowed:
		decision.Reason = "role " + string(user.Role) + " lacks " + string(g.required)
	}

	l := logger.FromContext(c.Request().Context(), g.log)
	ev := l.Info()
	result := "allow"
	if !allowed {
		ev = l.Warn().Str("reason", decision.Reason)
		result = "deny"
	}
	ev.Str("user_id", decision.UserID).
		Str("email", decision.Email).
		Str("ip", decision.IP).
		Str("operation", decision.Operation).
		Str("required_role", string(decision.RequiredRole)).
		Msg("role guard " + result)

	metrics.GuardDecisionsTotal.WithLabelValues("role", result).Inc()
	if g.audit != nil {
		g.audit.Enqueue(decision)
	}

	if !allowed {
		return domain.ErrForbidden
	}
	return nil
}

func operation(c echo.Context) string {
	path := c.Path()
	if path == "" {
		path = c.Request().URL.Path
	}
	return c.Request().Method + " " + path
}
