package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallRecord is one row of call history. Created when a call starts ringing,
// finalized with end time and duration when it ends or a participant drops.
type CallRecord struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	CallID   string `gorm:"type:varchar(128);index;not null" json:"call_id"`
	CallerID string `gorm:"type:varchar(36);index;not null" json:"caller_id"`
	CalleeID string `gorm:"type:varchar(36);index;not null" json:"callee_id"`

	Type      string `gorm:"type:varchar(10);not null" json:"type"`      // voice or video
	Direction string `gorm:"type:varchar(10);not null" json:"direction"` // outgoing from the caller's view

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Duration  float64    `json:"duration"` // seconds

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *CallRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
