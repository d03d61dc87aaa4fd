package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest admin password accepted for hashing.
const MinPasswordLength = 8

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrNotBcryptHash    = errors.New("value is not a bcrypt hash")
)

// HashPassword hashes an admin password with bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hashed), err
}

// ValidateHash rejects values that bcrypt cannot compare against, such as a plain
// password placed in ADMIN_PASSWORD_HASH by mistake.
func ValidateHash(hashed string) error {
	if _, err := bcrypt.Cost([]byte(hashed)); err != nil {
		return ErrNotBcryptHash
	}
	return nil
}

// CheckPassword compares plain password with hashed password.
func CheckPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
