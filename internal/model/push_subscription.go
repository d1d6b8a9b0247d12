package model

import "time"

// PushSubscription holds the information for an occupant's browser push subscription.
type PushSubscription struct {
	Endpoint   string    `gorm:"primaryKey"`
	OccupantID string    `gorm:"size:36;not null;index"`
	P256DH     string    `gorm:"column:p256dh;not null"`
	Auth       string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}
