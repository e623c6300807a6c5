package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/excavator/rental-api/internal/core/domain"
)

func TestBcryptHasher_Roundtrip(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	for _, pwd := range []string{"Secret123!", "a1", "pässwörd99", ""} {
		hash, err := h.Hash(pwd)
		require.NoError(t, err)
		assert.NotEqual(t, pwd, hash)

		ok, err := h.Verify(pwd, hash)
		require.NoError(t, err)
		assert.True(t, ok, "password %q should verify", pwd)
	}
}

func TestBcryptHasher_WrongPassword(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("Secret123!")
	require.NoError(t, err)

	ok, err := h.Verify("Secret124!", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_SaltedPerCall(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	first, err := h.Hash("Secret123!")
	require.NoError(t, err)
	second, err := h.Hash("Secret123!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_MalformedHashIsAnError(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := h.Verify("Secret123!", "not-a-bcrypt-hash")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestNewBcryptHasher_Cost(t *testing.T) {
	h, err := NewBcryptHasher(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)

	_, err = NewBcryptHasher(bcrypt.MaxCost + 1)
	require.Error(t, err)
}

func TestBcryptHasher_OverLongInputIsInvalid(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	long := strings.Repeat("\U0001D49C", 30) + "12"
	require.Greater(t, len(long), 72)

	_, err = h.Hash(long)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	hash, err := h.Hash("Secret123!")
	require.NoError(t, err)
	ok, err := h.Verify(long, hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
