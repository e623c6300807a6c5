package middleware

import "github.com/labstack/echo/v4"

// Guard decides whether a request may reach its handler. A nil error lets
// the request through; anything else aborts it and is rendered by the
// global error handler.
type Guard interface {
	CanActivate(c echo.Context) error
}

// GuardFunc adapts a plain function to the Guard interface.
type GuardFunc func(c echo.Context) error

func (f GuardFunc) CanActivate(c echo.Context) error { return f(c) }

// Guards runs guards in order and stops at the first refusal.
func Guards(guards ...Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, g := range guards {
				if err := g.CanActivate(c); err != nil {
					return err
				}
			}
			return next(c)
		}
	}
}
