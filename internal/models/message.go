package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ChatID   string `gorm:"type:varchar(36);index;not null" json:"chat_id"`
	SenderID string `gorm:"type:varchar(36);index;not null" json:"sender_id"`
	Content  string `gorm:"type:text;not null" json:"content"`

	Edited   bool       `gorm:"default:false" json:"edited"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
