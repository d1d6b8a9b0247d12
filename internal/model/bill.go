package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bill is one electricity bill for a billing period. Bills are immutable once
// created.
type Bill struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	PeriodStart     string          `gorm:"size:10;not null;index" json:"periodStart"`
	PeriodEnd       string          `gorm:"size:10;not null" json:"periodEnd"`
	PreviousReading decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"previousReading"`
	CurrentReading  decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"currentReading"`
	RatePerUnit     decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"ratePerUnit"`
	Consumption     decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"consumption"`
	TotalCost       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"totalCost"`
	TotalDays       int             `gorm:"not null" json:"totalDays"`
	CreatedAt       time.Time       `json:"createdAt"`

	// Associations
	Shares []BillShare `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE" json:"shares,omitempty"`
}

// BeforeCreate assigns a UUID when none was provided.
func (b *Bill) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// BillShare is one occupant's prorated portion of a Bill. RentSnapshot holds
// the occupant's monthly rent at the time the bill was issued.
type BillShare struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	BillID       string          `gorm:"size:36;not null;index" json:"billId"`
	OccupantID   string          `gorm:"size:36;not null;index" json:"occupantId"`
	DaysStayed   int             `gorm:"not null" json:"daysStayed"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	RentSnapshot decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"rentSnapshot"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// BeforeCreate assigns a UUID when none was provided.
func (s *BillShare) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
