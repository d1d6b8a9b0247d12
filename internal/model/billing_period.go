package model

import "time"

// BillingPeriodSetting is the administrator's override of the current billing
// period. The table holds at most one row.
type BillingPeriodSetting struct {
	ID        int       `gorm:"primaryKey"`
	StartDate string    `gorm:"size:10;not null"`
	EndDate   string    `gorm:"size:10;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
