package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a two-party conversation. The chat id doubles as the room id on the
// signaling socket.
type Chat struct {
	ID            string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	LastMessageID *string `gorm:"type:varchar(36)" json:"last_message_id,omitempty"`

	Participants []User   `gorm:"many2many:chat_participants" json:"participants"`
	LastMessage  *Message `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
