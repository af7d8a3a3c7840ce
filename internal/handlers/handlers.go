package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"chatwire/internal/config"
	"chatwire/internal/signaling"
	"chatwire/internal/turn"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

type Handlers struct {
	db         *gorm.DB
	cfg        *config.Config
	hub        *signaling.Hub
	turnServer *turn.Server
	logger     *slog.Logger

	upgrader websocket.Upgrader
	nowFn    func() time.Time
}

func New(db *gorm.DB, cfg *config.Config, hub *signaling.Hub, turnServer *turn.Server, logger *slog.Logger) *Handlers {
	return &Handlers{
		db:         db,
		cfg:        cfg,
		hub:        hub,
		turnServer: turnServer,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		nowFn: time.Now,
	}
}
