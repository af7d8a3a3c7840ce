package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PushSubscription struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID   string `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Endpoint string `gorm:"type:text;not null" json:"endpoint"`
	P256DH   string `gorm:"type:text;not null" json:"p256dh"`
	Auth     string `gorm:"type:text;not null" json:"auth"`

	CreatedAt time.Time `json:"created_at"`
}

func (s *PushSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
