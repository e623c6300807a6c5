package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("access forbidden")

	// ErrInternal marks store, hasher or signer faults. It is the only
	// failure a caller may retry.
	ErrInternal = errors.New("internal failure")
)

// Refinements of ErrTokenInvalid. errors.Is(err, ErrTokenInvalid) holds for all of them.
var (
	ErrTokenKindMismatch = fmt.Errorf("%w: token kind mismatch", ErrTokenInvalid)
	ErrRefreshRevoked    = fmt.Errorf("%w: refresh session revoked", ErrTokenInvalid)
	ErrRefreshReused     = fmt.Errorf("%w: refresh token superseded", ErrTokenInvalid)
)

// ErrInvalidInput rejects requests that are missing required fields before
// any store access happens.
var ErrInvalidInput = errors.New("invalid input")
