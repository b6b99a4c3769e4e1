package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthGuestToken(t *testing.T) {
	a := NewAuth(nil, "secret")

	id, token, err := a.Guest("")
	require.NoError(t, err)
	assert.True(t, id.Guest)
	assert.True(t, strings.HasPrefix(id.StableID, "g"))
	assert.True(t, strings.HasPrefix(id.Name, "Guest_"))

	back, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestAuthGuestIDsAreUnique(t *testing.T) {
	a := NewAuth(nil, "secret")
	first, _, _ := a.Guest("ana")
	second, _, _ := a.Guest("ana")
	assert.NotEqual(t, first.StableID, second.StableID)
}

func TestAuthWithoutDatabase(t *testing.T) {
	a := NewAuth(nil, "")
	_, _, err := a.Register("ana", "pass")
	assert.True(t, errors.Is(err, ErrNoAccounts))
	_, _, err = a.Login("ana", "pass", "1.2.3.4")
	assert.True(t, errors.Is(err, ErrNoAccounts))
}

func TestAuthRegisterAndLogin(t *testing.T) {
	db := openTestDB(t)
	a := NewAuth(db, "")

	id, token, err := a.Register("  ana ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana", id.Name)
	assert.Equal(t, accountStableID(id.AccountID), id.StableID)
	assert.False(t, id.Guest)

	back, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id.StableID, back.StableID)
	assert.Equal(t, id.AccountID, back.AccountID)

	_, _, err = a.Register("ana", "secret2")
	assert.EqualError(t, err, "username already taken")

	logged, _, err := a.Login("ana", "secret1", "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, id.StableID, logged.StableID, "the stable id survives a new login")

	_, _, err = a.Login("ana", "wrong", "1.2.3.4")
	assert.EqualError(t, err, "invalid username or password")
	_, _, err = a.Login("nobody", "secret1", "1.2.3.4")
	assert.EqualError(t, err, "invalid username or password")
}

func TestAuthRegisterValidation(t *testing.T) {
	a := NewAuth(openTestDB(t), "secret")
	_, _, err := a.Register("a", "secret1")
	assert.Error(t, err)
	_, _, err = a.Register(strings.Repeat("x", maxUsernameLen+1), "secret1")
	assert.Error(t, err)
	_, _, err = a.Register("ana", "abc")
	assert.Error(t, err)
}

func TestAuthSecretPersists(t *testing.T) {
	db := openTestDB(t)
	first := NewAuth(db, "")
	_, token, err := first.Guest("ana")
	require.NoError(t, err)

	second := NewAuth(db, "")
	_, err = second.ValidateToken(token)
	assert.NoError(t, err, "a restarted server accepts tokens issued before")

	other := NewAuth(nil, "different")
	_, err = other.ValidateToken(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestAuthRejectsTokenWithoutStableID(t *testing.T) {
	a := NewAuth(nil, "secret")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"usr": "ana"})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = a.ValidateToken(signed)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestAuthLoginRateLimit(t *testing.T) {
	a := NewAuth(openTestDB(t), "secret")
	for i := 0; i < maxLoginAttempts; i++ {
		assert.True(t, a.checkRate("9.9.9.9"))
	}
	assert.False(t, a.checkRate("9.9.9.9"))
	assert.True(t, a.checkRate("8.8.8.8"), "limits are per address")
}
