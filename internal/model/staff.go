package model

import (
	"time"

	"github.com/google/uuid"
)

// Staff roles. Desk accounts can only register sales (OUT movements);
// everything else requires admin.
const (
	RoleAdmin = "admin"
	RoleDesk  = "desk"
)

// Staff is an account that can authenticate against the API.
type Staff struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Name         string    `gorm:"not null"`
	Role         string    `gorm:"not null;default:'desk'"` // "admin" | "desk"
	PasswordHash string    `gorm:"not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides GORM's pluralization (staffs → staff).
func (Staff) TableName() string { return "staff" }
