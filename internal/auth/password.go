package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost — стоимость bcrypt по умолчанию.
const DefaultBcryptCost = 12

// PasswordHasher хэширует и сверяет пароли.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher создаёт PasswordHasher; cost <= 0 — DefaultBcryptCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash возвращает bcrypt-хэш пароля.
func (h *PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify сверяет пароль с хэшем.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
