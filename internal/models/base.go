package models

import (
	"time"

	"investtrack/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all tables. Rows are hard-deleted; firms
// are retired through Firm.IsActive instead.
type Base struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// Address is embedded into firms and members with an address_ column prefix.
type Address struct {
	StreetLine1 string `json:"street_line1"`
	StreetLine2 string `json:"street_line2"`
	Locality    string `gorm:"index" json:"locality"`
	State       string `json:"state"`
	Region      string `json:"region"`
	Country     string `gorm:"index" json:"country"`
	PostalCode  string `json:"postal_code"`
}
