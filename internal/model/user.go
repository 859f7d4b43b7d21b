package model

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User roles
const (
	RoleUser     = "user"
	RoleDesigner = "designer"
	RoleAdmin    = "admin"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

// User represents the user model stored in the database
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"type:varchar(100);not null"`
	Email        string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password     string    `json:"-" gorm:"type:varchar(255);not null"`
	MobileNumber string    `json:"mobileNumber" gorm:"type:varchar(30)"`
	Role         string    `json:"role" gorm:"type:varchar(20);default:user;not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims an email for storage and lookup
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SetPassword stores the bcrypt hash of plain
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword reports whether plain matches the stored hash
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether r is a known role
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleDesigner, RoleAdmin:
		return true
	}
	return false
}
