package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Occupant represents a dormer. Occupants are deactivated on move-out,
// never hard-deleted, so that historical shares and payments keep their owner.
type Occupant struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	Name        string          `gorm:"size:128;not null" json:"name"`
	Email       string          `gorm:"size:256" json:"email"`
	Phone       string          `gorm:"size:32" json:"phone"`
	Room        string          `gorm:"size:32;not null;index" json:"room"`
	MonthlyRent decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"monthlyRent"`
	Active      bool            `gorm:"not null" json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when none was provided.
func (o *Occupant) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
