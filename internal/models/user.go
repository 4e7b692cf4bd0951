package models

import (
	"time"

	"gorm.io/gorm"
)

// Rôles applicatifs (ensemble fermé, voir internal/scope).
const (
	RoleAdmin      = "admin"
	RoleEntreprise = "entreprise"
	RoleClient     = "client"
)

// User & auth related models
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Email    string `gorm:"unique;not null;index" json:"email"`
	Password string `gorm:"not null" json:"-"` // hashé (bcrypt)
	Role     string `gorm:"not null;default:'client';index" json:"role"`
	// Réinitialisation de mot de passe
	ResetToken  string     `gorm:"index" json:"-"`
	ResetExpiry *time.Time `json:"-"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ValidRole reports whether r belongs to the closed role set.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleEntreprise, RoleClient:
		return true
	}
	return false
}
