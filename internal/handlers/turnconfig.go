package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetTURNConfig returns the ICE server list for the browser's
// RTCPeerConnection. The embedded TURN server is UDP-only, so the URL scheme
// is turn:, not turns:; media encryption is DTLS-SRTP either way.
func (h *Handlers) GetTURNConfig(c *gin.Context) {
	host := c.Request.Host
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}

	creds := h.turnServer.GetCredentials()
	stunURL := fmt.Sprintf("stun:%s:%d", host, h.cfg.TURNPort)
	turnURL := fmt.Sprintf("turn:%s:%d", host, h.cfg.TURNPort)

	c.JSON(http.StatusOK, gin.H{
		"iceServers": []map[string]interface{}{
			{"urls": stunURL},
			{
				"urls":       turnURL,
				"username":   creds.Username,
				"credential": creds.Password,
			},
		},
	})
}
