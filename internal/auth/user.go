// Package auth — регистрация, вход и проверка bearer-токенов.
//
// Пароли хранятся bcrypt-хэшами, токены — подписанные HS256 JWT.
// Пользователи лежат в том же хранилище, что и задачи (UserStore).
package auth

import (
	"context"
	"errors"
	"time"

	"taskmaster/internal/validation"
)

var (
	// ErrUserNotFound — пользователя нет.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists — email уже занят.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials — неверный email или пароль.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User — учётная запись.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserStore — контракт хранилища пользователей.
type UserStore interface {
	// CreateUser выдаёт ID, проставляет время и сохраняет пользователя.
	// Занятый email — ErrUserExists.
	CreateUser(ctx context.Context, u *User) error
	// FindUserByEmail ищет по email (в нижнем регистре) или возвращает ErrUserNotFound.
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	// FindUserByID ищет по ID или возвращает ErrUserNotFound.
	FindUserByID(ctx context.Context, id string) (*User, error)
}

// RegisterRequest — тело POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
}

var registerMessages = validation.Messages{
	"username":          "Username must be between 3 and 30 characters",
	"email":             "Please provide a valid email",
	"password":          "Password must be at least 6 characters long",
	"password.maxbytes": "Password must be at most 72 bytes long",
}

// LoginRequest — тело POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var loginMessages = validation.Messages{
	"email":    "Please provide a valid email",
	"password": "Password is required",
}

// Session — результат регистрации или входа.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
