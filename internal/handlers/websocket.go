package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandleWebSocket upgrades the connection and hands it to the signaling hub.
// Identity is not taken from the request: the client announces it as its
// first event, and the hub trusts the announce (the REST surface is the
// authenticated boundary).
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "ip", c.ClientIP(), "error", err)
		return
	}

	h.hub.Serve(conn)
}
