package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/excavator/rental-api/internal/core/domain"
)

const userContextKey = "auth.user"

// UserFrom returns the user attached by an identity guard, if any.
func UserFrom(c echo.Context) (*domain.User, bool) {
	u, ok := c.Get(userContextKey).(*domain.User)
	return u, ok && u != nil
}

// SetUser attaches user to the request context.
func SetUser(c echo.Context, user *domain.User) {
	c.Set(userContextKey, user)
}
