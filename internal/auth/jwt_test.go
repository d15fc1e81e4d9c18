package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWT(now time.Time) *JWTManager {
	m := NewJWTManager(JWTConfig{
		SecretKey:     "test-secret",
		TokenDuration: time.Hour,
		Issuer:        "taskmaster",
	})
	m.now = func() time.Time { return now }
	return m
}

func TestJWT_RoundTrip(t *testing.T) {
	now := time.Now()
	m := testJWT(now)

	token, err := m.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "taskmaster", claims.Issuer)
}

func TestJWT_Expired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	token, err := testJWT(issued).GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = testJWT(time.Now()).ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	other := NewJWTManager(JWTConfig{SecretKey: "other", TokenDuration: time.Hour, Issuer: "taskmaster"})
	token, err := other.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = testJWT(time.Now()).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_WrongIssuer(t *testing.T) {
	other := NewJWTManager(JWTConfig{SecretKey: "test-secret", TokenDuration: time.Hour, Issuer: "someone-else"})
	token, err := other.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	_, err = testJWT(time.Now()).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "taskmaster",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = testJWT(time.Now()).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_Garbage(t *testing.T) {
	_, err := testJWT(time.Now()).ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
