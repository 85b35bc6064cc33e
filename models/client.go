package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client represents a serviced property owner. Clients are reference data:
// the report engine resolves display names against them but never lets them
// drive lifecycle decisions.
type Client struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Name      string         `gorm:"not null;index" json:"name"`
	Address   string         `gorm:"not null" json:"address"`
	Phone     string         `json:"phone,omitempty"`
	Email     string         `json:"email,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Client model
func (Client) TableName() string {
	return "clients"
}

// BeforeCreate assigns an ID when none was provided
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
