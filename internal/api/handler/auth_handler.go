package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/excavator/rental-api/internal/core/domain"
	"github.com/excavator/rental-api/internal/core/ports"
)

// CookieOptions describes the refresh token cookie.
type CookieOptions struct {
	Name   string
	Path   string
	Secure bool
}

type AuthHandler struct {
	authService ports.AuthService
	cookie      CookieOptions
}

// WithDefaults fills an empty name and path.
func (o CookieOptions) WithDefaults() CookieOptions {
	if o.Name == "" {
		o.Name = "refresh_token"
	}
	if o.Path == "" {
		o.Path = "/auth"
	}
	return o
}

func NewAuthHandler(authService ports.AuthService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, cookie: cookie.WithDefaults()}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Username string `json:"username" validate:"omitempty,max=64"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userSummary struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

type signInResponse struct {
	AccessToken string      `json:"access_token"`
	User        userSummary `json:"user"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// Register creates a new account with role USER.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Username: req.Username,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// SignIn returns an access token and sets the refresh token cookie.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, res.RefreshToken, res.RefreshExpiresAt)
	return c.JSON(http.StatusOK, signInResponse{
		AccessToken: res.AccessToken,
		User: userSummary{
			ID:    res.User.ID,
			Email: res.User.Email,
			Role:  res.User.Role,
		},
	})
}

// Refresh rotates the token pair. The refresh guard has already matched the
// cookie against the stored digest.
func (h *AuthHandler) Refresh(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	pair, err := h.authService.Refresh(c.Request().Context(), user)
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpiresAt)
	return c.JSON(http.StatusOK, accessTokenResponse{AccessToken: pair.AccessToken})
}

// Logout ends the refreshable session and clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), user.ID); err != nil {
		return err
	}

	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

// Validate reports that the presented access token is good.
func (h *AuthHandler) Validate(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, validateResponse{Valid: true})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     h.cookie.Path,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     h.cookie.Path,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
