package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatwire/internal/models"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PushSubscribeKeys struct {
	P256DH string `json:"p256dh" binding:"required"`
	Auth   string `json:"auth" binding:"required"`
}

type PushSubscribeRequest struct {
	Endpoint string            `json:"endpoint" binding:"required"`
	Keys     PushSubscribeKeys `json:"keys" binding:"required"`
}

func (h *Handlers) GetVAPIDPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.cfg.VAPIDKeys.PublicKey})
}

// SubscribePush stores the browser's push subscription, replacing any older
// ones for the same user.
func (h *Handlers) SubscribePush(c *gin.Context) {
	userID, _ := c.Get("user_id")
	userIDStr := userID.(string)

	var req PushSubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.Where("user_id = ?", userIDStr).Delete(&models.PushSubscription{}).Error; err != nil {
		h.logger.Error("delete old push subscriptions", "user", userIDStr, "error", err)
	}

	subscription := models.PushSubscription{
		UserID:   userIDStr,
		Endpoint: req.Endpoint,
		P256DH:   req.Keys.P256DH,
		Auth:     req.Keys.Auth,
	}
	if err := h.db.Create(&subscription).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subscription"})
		return
	}

	c.JSON(http.StatusCreated, subscription)
}

func (h *Handlers) UnsubscribePush(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var subscription models.PushSubscription
	if err := h.db.Where("user_id = ? AND endpoint = ?", userID, req.Endpoint).First(&subscription).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subscription not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := h.db.Delete(&subscription).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

// IncomingCall implements signaling.CallNotifier: when a call starts ringing
// the callee also gets a web push, so a backgrounded tab can still surface it.
func (h *Handlers) IncomingCall(calleeID, callerID, callType string) {
	callerName := callerID
	var caller models.User
	if err := h.db.First(&caller, "id = ?", callerID).Error; err == nil && caller.Name != "" {
		callerName = caller.Name
	}

	title := "Incoming " + callType + " call"
	if err := h.sendPush(calleeID, title, callerName+" is calling you", map[string]interface{}{
		"caller_id": callerID,
		"call_type": callType,
	}); err != nil {
		h.logger.Error("push incoming call", "callee", calleeID, "error", err)
	}
}

func (h *Handlers) sendPush(userID, title, body string, data map[string]interface{}) error {
	var subscriptions []models.PushSubscription
	if err := h.db.Where("user_id = ?", userID).Find(&subscriptions).Error; err != nil {
		return err
	}
	if len(subscriptions) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"title":   title,
		"body":    body,
		"data":    data,
		"urgency": "high",
	})
	if err != nil {
		return err
	}

	for _, sub := range subscriptions {
		resp, err := webpush.SendNotification(payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256DH,
				Auth:   sub.Auth,
			},
		}, &webpush.Options{
			Subscriber:      h.cfg.VAPIDKeys.Subject,
			VAPIDPublicKey:  h.cfg.VAPIDKeys.PublicKey,
			VAPIDPrivateKey: h.cfg.VAPIDKeys.PrivateKey,
			TTL:             30,
		})
		if err != nil {
			h.logger.Warn("push send failed", "user", userID, "error", err)
			continue
		}

		// Gone or not found means the browser dropped the subscription.
		if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
			h.db.Delete(&sub)
		}
		resp.Body.Close()
	}
	return nil
}
