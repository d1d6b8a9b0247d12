package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentStatus is the recorded status of a payment row.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentOverdue PaymentStatus = "overdue"
)

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentPending, PaymentOverdue:
		return true
	}
	return false
}

// Payment records money received from an occupant. A payment linked to a
// BillShare settles that electricity share; an unlinked payment settles the
// rent for Month.
type Payment struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	OccupantID  string          `gorm:"size:36;not null;index" json:"occupantId"`
	BillShareID *string         `gorm:"size:36;index" json:"billShareId,omitempty"`
	Month       string          `gorm:"size:7;not null;index" json:"month"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaidOn      string          `gorm:"size:10;not null" json:"paidOn"`
	Method      string          `gorm:"size:32;not null" json:"method"`
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`
	Status      PaymentStatus   `gorm:"size:16;not null;default:paid" json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// BeforeCreate assigns a UUID and the default status.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PaymentPaid
	}
	return nil
}
