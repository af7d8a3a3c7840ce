package handlers

import (
	"errors"
	"net/http"

	"chatwire/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CreateChatRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type SendMessageRequest struct {
	ChatID  string `json:"chat_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// ListChats returns the caller's conversations, most recently active first.
func (h *Handlers) ListChats(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var chats []models.Chat
	err := h.db.
		Preload("Participants").
		Preload("LastMessage").
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", userID).
		Order("chats.updated_at DESC").
		Find(&chats).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, chats)
}

// CreateChat finds or creates the two-party chat between the caller and the
// requested user.
func (h *Handlers) CreateChat(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userIDStr := userID.(string)

	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == userIDStr {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot chat with yourself"})
		return
	}

	var other models.User
	if err := h.db.First(&other, "id = ?", req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	// Look for an existing two-party chat with exactly these participants.
	var existing []models.Chat
	err := h.db.
		Preload("Participants").
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id").
		Where("cp.user_id = ?", userIDStr).
		Find(&existing).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	for i := range existing {
		if len(existing[i].Participants) != 2 {
			continue
		}
		for _, p := range existing[i].Participants {
			if p.ID == req.UserID {
				c.JSON(http.StatusOK, existing[i])
				return
			}
		}
	}

	var me models.User
	if err := h.db.First(&me, "id = ?", userIDStr).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	chat := models.Chat{}
	if err := h.db.Create(&chat).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat"})
		return
	}
	if err := h.db.Model(&chat).Association("Participants").Append(&me, &other); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat"})
		return
	}

	chat.Participants = []models.User{me, other}
	c.JSON(http.StatusOK, chat)
}

// SendMessage persists a message and bumps the chat's last-message pointer.
// Realtime fan-out happens separately: the client pushes the returned object
// through the socket as send-chat-message.
func (h *Handlers) SendMessage(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userIDStr := userID.(string)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.isParticipant(req.ChatID, userIDStr) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this chat"})
		return
	}

	msg := models.Message{
		ChatID:   req.ChatID,
		SenderID: userIDStr,
		Content:  req.Content,
	}
	if err := h.db.Create(&msg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}

	if err := h.db.Model(&models.Chat{}).Where("id = ?", req.ChatID).
		Update("last_message_id", msg.ID).Error; err != nil {
		h.logger.Error("update chat last message", "chat_id", req.ChatID, "error", err)
	}

	c.JSON(http.StatusOK, msg)
}

// GetMessages lists a chat's messages in send order.
func (h *Handlers) GetMessages(c *gin.Context) {
	userID, _ := c.Get("user_id")
	chatID := c.Param("chat_id")

	if !h.isParticipant(chatID, userID.(string)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this chat"})
		return
	}

	var messages []models.Message
	if err := h.db.Where("chat_id = ?", chatID).Order("created_at ASC").Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

func (h *Handlers) isParticipant(chatID, userID string) bool {
	var count int64
	h.db.Table("chat_participants").
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count)
	return count > 0
}
