package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskmaster/internal/validation"
)

// Service — бизнес-логика аутентификации.
type Service struct {
	store     UserStore
	hasher    *PasswordHasher
	jwt       *JWTManager
	validator *validation.Validator
}

// NewService создаёт Service.
func NewService(store UserStore, hasher *PasswordHasher, jwt *JWTManager, v *validation.Validator) *Service {
	return &Service{store: store, hasher: hasher, jwt: jwt, validator: v}
}

// Register создаёт учётную запись и сразу выдаёт токен.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Check(req, registerMessages); err != nil {
		return nil, err
	}

	if _, err := s.store.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	}
	// Гонку двух регистраций ловит уникальный индекс хранилища (ErrUserExists).
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.session(user)
}

// Login проверяет email и пароль и выдаёт токен.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Check(req, loginMessages); err != nil {
		return nil, err
	}

	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.session(user)
}

// Me возвращает пользователя по ID из токена.
func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	return s.store.FindUserByID(ctx, userID)
}

// VerifyToken проверяет токен и возвращает ID пользователя.
// Реализует middleware.TokenVerifier.
func (s *Service) VerifyToken(token string) (string, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) session(u *User) (*Session, error) {
	token, err := s.jwt.GenerateToken(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Session{Token: token, User: u}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
