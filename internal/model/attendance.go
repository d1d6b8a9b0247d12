package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the layout of calendar dates stored as text.
const DateLayout = "2006-01-02"

// MonthLayout is the layout of "YYYY-MM" month labels.
const MonthLayout = "2006-01"

// AttendanceRecord marks whether an occupant was present on one calendar date.
// There is at most one record per (occupant, date); writes are upserts.
type AttendanceRecord struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	OccupantID string    `gorm:"size:36;not null;uniqueIndex:idx_attendance_occupant_date" json:"occupantId"`
	Date       string    `gorm:"size:10;not null;uniqueIndex:idx_attendance_occupant_date" json:"date"`
	Present    bool      `gorm:"not null;default:false" json:"present"`
	Note       string    `gorm:"type:text" json:"note,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BeforeCreate assigns a UUID when none was provided.
func (a *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
