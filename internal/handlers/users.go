package handlers

import (
	"errors"
	"net/http"
	"strings"

	"chatwire/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type userListEntry struct {
	models.User
	Online bool `json:"online"`
}

// ListUsers returns the directory for the sidebar: everyone except the
// caller, annotated with live presence from the signaling hub.
func (h *Handlers) ListUsers(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var users []models.User
	if err := h.db.Where("id != ?", userID).Order("name ASC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	entries := make([]userListEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, userListEntry{User: u, Online: h.hub.IsOnline(u.ID)})
	}

	c.JSON(http.StatusOK, entries)
}

// SearchUsers looks up another user by exact email, for starting a new chat.
func (h *Handlers) SearchUsers(c *gin.Context) {
	userID, _ := c.Get("user_id")

	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email query parameter required"})
		return
	}

	var user models.User
	if err := h.db.Where("email = ? AND id != ?", email, userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, user)
}

type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=100"`
	About string `json:"about" binding:"max=255"`
}

// UpdateProfile changes the caller's display name and about line.
func (h *Handlers) UpdateProfile(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	user.Name = req.Name
	user.About = req.About
	if err := h.db.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, user)
}
