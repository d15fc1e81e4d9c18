package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskmaster/internal/auth"
	"taskmaster/internal/storage/memory"
	"taskmaster/internal/validation"
)

func newService(t *testing.T) *auth.Service {
	t.Helper()
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		SecretKey:     "test-secret",
		TokenDuration: time.Hour,
		Issuer:        "taskmaster",
	})
	return auth.NewService(memory.New(), auth.NewPasswordHasher(bcrypt.MinCost), jwtManager, validation.New())
}

func TestRegisterLoginMe(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, auth.RegisterRequest{
		Username: " alice ",
		Email:    "Alice@Example.com",
		Password: "secret1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "alice", sess.User.Username)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.NotEqual(t, "secret1", sess.User.PasswordHash)

	userID, err := svc.VerifyToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, userID)

	login, err := svc.Login(ctx, auth.LoginRequest{Email: "ALICE@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	me, err := svc.Me(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", me.Email)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, auth.RegisterRequest{Username: "other", Email: "A@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, auth.ErrUserExists)
}

func TestRegister_Validation(t *testing.T) {
	svc := newService(t)

	_, err := svc.Register(context.Background(), auth.RegisterRequest{Username: "al", Email: "nope", Password: "123"})

	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, []string{
		"Username must be between 3 and 30 characters",
		"Please provide a valid email",
		"Password must be at least 6 characters long",
	}, vErr.Messages)
}

func TestRegister_PasswordOverBcryptLimit(t *testing.T) {
	svc := newService(t)

	// 42 символа, но 84 байта: больше, чем принимает bcrypt.
	_, err := svc.Register(context.Background(), auth.RegisterRequest{
		Username: "alice",
		Email:    "a@example.com",
		Password: strings.Repeat("пароль", 7),
	})

	var vErr *validation.Error
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, []string{"Password must be at most 72 bytes long"}, vErr.Messages)

	_, err = svc.Register(context.Background(), auth.RegisterRequest{
		Username: "alice",
		Email:    "a@example.com",
		Password: strings.Repeat("п", 36),
	})
	assert.NoError(t, err)
}

func TestLogin_WrongCredentials(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, auth.LoginRequest{Email: "a@example.com", Password: "wrong-pass"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, auth.LoginRequest{Email: "ghost@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestPasswordHasher(t *testing.T) {
	h := auth.NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.True(t, h.Verify("secret1", hash))
	assert.False(t, h.Verify("secret2", hash))
	assert.False(t, h.Verify("secret1", "not-a-hash"))
}
