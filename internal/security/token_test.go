package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, "rentacar-idp")

	token, err := tm.GenerateAccessToken("cust-1", "ana@example.com", []string{RoleStaff})
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", claims.CustomerID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.True(t, claims.HasRole(RoleStaff))
	assert.False(t, claims.HasRole("admin"))
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager(testSecret, "rentacar-idp")

	t.Run("Wrong Secret", func(t *testing.T) {
		other := NewTokenManager("another-secret-key-that-is-32-chars-long", "rentacar-idp")
		token, err := other.GenerateAccessToken("cust-1", "", nil)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Wrong Issuer", func(t *testing.T) {
		other := NewTokenManager(testSecret, "someone-else")
		token, err := other.GenerateAccessToken("cust-1", "", nil)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired", func(t *testing.T) {
		claims := CustomerClaims{
			CustomerID: "cust-1",
			Type:       TokenTypeAccess,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "cust-1",
				Issuer:    "rentacar-idp",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Wrong Type", func(t *testing.T) {
		claims := CustomerClaims{
			CustomerID: "cust-1",
			Type:       TokenType("refresh"),
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "rentacar-idp",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
