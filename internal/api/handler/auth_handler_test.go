package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/excavator/rental-api/internal/api/middleware"
	"github.com/excavator/rental-api/internal/core/domain"
	"github.com/excavator/rental-api/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	signInFn   func(ctx context.Context, email, password string) (*ports.SignInResult, error)
	refreshFn  func(ctx context.Context, user *domain.User) (*ports.TokenPair, error)
	logoutFn   func(ctx context.Context, userID string) error
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) SignIn(ctx context.Context, email, password string) (*ports.SignInResult, error) {
	return s.signInFn(ctx, email, password)
}

func (s *stubAuthService) Refresh(ctx context.Context, user *domain.User) (*ports.TokenPair, error) {
	return s.refreshFn(ctx, user)
}

func (s *stubAuthService) Logout(ctx context.Context, userID string) error {
	return s.logoutFn(ctx, userID)
}

var testCookie = CookieOptions{Name: "refresh_token", Path: "/auth", Secure: true}

func jsonContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "refresh_token" {
			return ck
		}
	}
	t.Fatalf("refresh_token cookie not set")
	return nil
}

func httpStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func TestAuthHandler_Register_Success(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
			if in.Email != "alice@example.com" || in.Password != "Secret123!" || in.Username != "alice" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: "u-1", Email: in.Email, Username: in.Username, Role: domain.RoleUser, PasswordHash: "$2a$..."}, nil
		},
	}
	h := NewAuthHandler(stub, testCookie)

	c, rec := jsonContext(http.MethodPost, "/auth/signup", `{"email":"alice@example.com","password":"Secret123!","username":"alice"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "u-1" || resp["role"] != "USER" {
		t.Fatalf("unexpected user payload: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, testCookie)

	cases := map[string]string{
		"bad email":        `{"email":"not-an-email","password":"Secret123!"}`,
		"missing password": `{"email":"alice@example.com"}`,
		"no digit":         `{"email":"alice@example.com","password":"Secretpass"}`,
		"too short":        `{"email":"alice@example.com","password":"a1"}`,
		"too long":         `{"email":"alice@example.com","password":"` + strings.Repeat("a1", 17) + `"}`,
		"long username":    `{"email":"alice@example.com","password":"Secret123!","username":"` + strings.Repeat("x", 65) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := jsonContext(http.MethodPost, "/auth/signup", body)
			if code := httpStatus(h.Register(c)); code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", code)
			}
		})
	}
}

func TestAuthHandler_Register_BadJSON(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, testCookie)
	c, _ := jsonContext(http.MethodPost, "/auth/signup", `{"email":`)
	if code := httpStatus(h.Register(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAuthHandler_Register_PropagatesDomainError(t *testing.T) {
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, error) {
			return nil, domain.ErrDuplicateEmail
		},
	}
	h := NewAuthHandler(stub, testCookie)

	c, _ := jsonContext(http.MethodPost, "/auth/signup", `{"email":"alice@example.com","password":"Secret123!"}`)
	if err := h.Register(c); !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthHandler_SignIn_SetsCookie(t *testing.T) {
	expires := time.Now().Add(7 * 24 * time.Hour)
	stub := &stubAuthService{
		signInFn: func(_ context.Context, email, password string) (*ports.SignInResult, error) {
			return &ports.SignInResult{
				TokenPair: ports.TokenPair{AccessToken: "access.jwt", RefreshToken: "refresh.jwt", RefreshExpiresAt: expires},
				User:      &domain.User{ID: "u-1", Email: email, Role: domain.RoleUser},
			}, nil
		},
	}
	h := NewAuthHandler(stub, testCookie)

	c, rec := jsonContext(http.MethodPost, "/auth/signin", `{"email":"alice@example.com","password":"Secret123!"}`)
	if err := h.SignIn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp signInResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.AccessToken != "access.jwt" || resp.User.ID != "u-1" || resp.User.Role != domain.RoleUser {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "refresh.jwt") {
		t.Fatalf("refresh token must only travel in the cookie")
	}

	ck := refreshCookie(t, rec)
	if ck.Value != "refresh.jwt" || !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteStrictMode || ck.Path != "/auth" {
		t.Fatalf("unexpected cookie: %+v", ck)
	}
	if ck.MaxAge < 7*24*3600-5 || ck.MaxAge > 7*24*3600 {
		t.Fatalf("unexpected max age: %d", ck.MaxAge)
	}
}

func TestAuthHandler_SignIn_Failure(t *testing.T) {
	stub := &stubAuthService{
		signInFn: func(context.Context, string, string) (*ports.SignInResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub, testCookie)

	c, rec := jsonContext(http.MethodPost, "/auth/signin", `{"email":"alice@example.com","password":"wrong1"}`)
	if err := h.SignIn(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no cookie on failure")
	}
}

func TestAuthHandler_Refresh_RotatesCookie(t *testing.T) {
	user := &domain.User{ID: "u-1", Email: "alice@example.com", Role: domain.RoleUser}
	stub := &stubAuthService{
		refreshFn: func(_ context.Context, u *domain.User) (*ports.TokenPair, error) {
			if u != user {
				t.Fatalf("service must receive the guarded user")
			}
			return &ports.TokenPair{AccessToken: "access.2", RefreshToken: "refresh.2", RefreshExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	h := NewAuthHandler(stub, testCookie)

	c, rec := jsonContext(http.MethodPost, "/auth/refresh", "")
	middleware.SetUser(c, user)
	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp accessTokenResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.AccessToken != "access.2" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if ck := refreshCookie(t, rec); ck.Value != "refresh.2" {
		t.Fatalf("cookie not rotated: %+v", ck)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	var loggedOut string
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, id string) error {
			loggedOut = id
			return nil
		},
	}
	h := NewAuthHandler(stub, testCookie)

	c, rec := jsonContext(http.MethodPost, "/auth/logout", "")
	middleware.SetUser(c, &domain.User{ID: "u-1"})
	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if loggedOut != "u-1" {
		t.Fatalf("logout not delegated, got %q", loggedOut)
	}
	if !strings.Contains(rec.Body.String(), "Logged out successfully") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if ck := refreshCookie(t, rec); ck.Value != "" || ck.MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %+v", ck)
	}
}

func TestAuthHandler_GuardedRoutesNeedUser(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, testCookie)
	for name, fn := range map[string]echo.HandlerFunc{
		"refresh":  h.Refresh,
		"logout":   h.Logout,
		"validate": h.Validate,
		"me":       h.Me,
	} {
		c, _ := jsonContext(http.MethodGet, "/", "")
		if err := fn(c); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestAuthHandler_ValidateAndMe(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, testCookie)
	user := &domain.User{ID: "u-1", Email: "alice@example.com", Role: domain.RoleUser}

	c, rec := jsonContext(http.MethodGet, "/auth/validate", "")
	middleware.SetUser(c, user)
	if err := h.Validate(c); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"valid":true}` {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	c, rec = jsonContext(http.MethodGet, "/auth/me", "")
	middleware.SetUser(c, user)
	if err := h.Me(c); err != nil {
		t.Fatalf("me: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"email":"alice@example.com"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
