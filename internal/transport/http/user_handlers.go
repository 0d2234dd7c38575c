package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/proto"
)

// UserHandlers provides HTTP handlers for user presence.
type UserHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(hub *core.Hub, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{hub: hub, log: logger}
}

// OnlineUsers lists every identity with a live connection.
// GET /api/users/online
func (h *UserHandlers) OnlineUsers(c *gin.Context) {
	users := h.hub.OnlineUsers()
	h.log.Debug().Int("count", len(users)).Msg("online users listed")
	c.JSON(http.StatusOK, proto.EventOnlineUsersData{Users: users})
}
