package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole identifies the single authorization axis of the system.
type UserRole string

const (
	RoleEmployee      UserRole = "employee"
	RoleAdministrator UserRole = "administrator"
)

// IsValid reports whether the role is one of the known values
func (r UserRole) IsValid() bool {
	return r == RoleEmployee || r == RoleAdministrator
}

// User represents a user in the system (employee or administrator)
type User struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         UserRole       `gorm:"not null;default:'employee'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns an ID when none was provided
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsAdministrator reports whether the user holds the administrator role
func (u *User) IsAdministrator() bool {
	return u.Role == RoleAdministrator
}
