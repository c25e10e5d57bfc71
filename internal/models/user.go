package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User owns a set of portfolios
type User struct {
	ID           int          `json:"id"`
	Email        string       `json:"email"`
	Username     string       `json:"username"`
	PasswordHash string       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	Portfolios   []*Portfolio `json:"portfolios,omitempty"`
}

// SetPassword stores a bcrypt hash of password
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
