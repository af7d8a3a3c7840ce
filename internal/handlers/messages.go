package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatwire/internal/models"
	"chatwire/internal/signaling"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// EditMessage updates a message's content and pushes the edit to the chat
// room over the socket so open clients re-render it.
func (h *Handlers) EditMessage(c *gin.Context) {
	userID, _ := c.Get("user_id")
	messageID := c.Param("id")

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var msg models.Message
	if err := h.db.First(&msg, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if msg.SenderID != userID.(string) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the sender can edit a message"})
		return
	}

	now := h.nowFn()
	msg.Content = req.Content
	msg.Edited = true
	msg.EditedAt = &now
	if err := h.db.Save(&msg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update message"})
		return
	}

	if data, err := json.Marshal(msg); err == nil {
		h.hub.NotifyRoom(msg.ChatID, signaling.Envelope{
			Type: signaling.EventMessageEdited,
			From: msg.SenderID,
			Data: data,
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message updated successfully", "data": msg})
}
