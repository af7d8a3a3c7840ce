package handlers

import (
	"net/http"

	"chatwire/internal/models"

	"github.com/gin-gonic/gin"
)

// ListCallHistory returns the caller's call records, newest first. Records
// still missing an end time belong to calls that are ringing or in progress.
func (h *Handlers) ListCallHistory(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var records []models.CallRecord
	err := h.db.
		Where("caller_id = ? OR callee_id = ?", userID, userID).
		Order("started_at DESC").
		Limit(100).
		Find(&records).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, records)
}
