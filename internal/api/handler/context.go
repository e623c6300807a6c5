package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/excavator/rental-api/internal/api/middleware"
	"github.com/excavator/rental-api/internal/core/domain"
)

// currentUser returns the user attached by the identity guard. A missing
// user means the route was registered without its guard.
func currentUser(c echo.Context) (*domain.User, error) {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return u, nil
}
