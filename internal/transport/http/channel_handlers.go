package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/proto"
)

// ChannelHandlers exposes channel listing, creation and history over REST.
type ChannelHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewChannelHandlers creates a new channel handlers instance.
func NewChannelHandlers(hub *core.Hub, logger *zerolog.Logger) *ChannelHandlers {
	return &ChannelHandlers{hub: hub, log: logger}
}

// CreateChannelRequest represents the create channel request body.
type CreateChannelRequest struct {
	Channel string `json:"channel" binding:"required"`
}

// ChannelResponse names a single channel.
type ChannelResponse struct {
	Channel string `json:"channel"`
}

// ChannelListResponse lists public channels in creation order.
type ChannelListResponse struct {
	Channels []string `json:"channels"`
}

// ListChannels handles listing public channels.
// GET /api/channels
func (h *ChannelHandlers) ListChannels(c *gin.Context) {
	channels, err := h.hub.Channels(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ChannelListResponse{Channels: channels})
}

// CreateChannel registers a public channel and announces it to connected clients.
// POST /api/channels
func (h *ChannelHandlers) CreateChannel(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create channel request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: core.ErrCodeBadRequest})
		return
	}

	name, err := h.hub.CreateChannel(c.Request.Context(), req.Channel)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.log.Info().Str("channel", name).Str("user", usernameFrom(c)).Msg("channel created via api")
	c.JSON(http.StatusCreated, ChannelResponse{Channel: name})
}

// Messages returns a channel's log, oldest first.
// GET /api/channels/:name/messages?limit=N
func (h *ChannelHandlers) Messages(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Code: core.ErrCodeBadRequest})
			return
		}
		limit = n
	}

	channel := c.Param("name")
	messages, err := h.hub.History(c.Request.Context(), channel, usernameFrom(c), limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, proto.EventHistoryData{
		Channel:  channel,
		Messages: messagesData(messages),
	})
}

func (h *ChannelHandlers) fail(c *gin.Context, err error) {
	ce := core.ToCoreError(err)
	status := statusForCode(ce.Code)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("channel request failed")
	}
	c.JSON(status, ErrorResponse{Error: ce.Message, Code: ce.Code})
}

func statusForCode(code string) int {
	switch code {
	case core.ErrCodeInvalidName, core.ErrCodeBadRequest:
		return http.StatusBadRequest
	case core.ErrCodeChannelExists:
		return http.StatusConflict
	case core.ErrCodeChannelNotFound:
		return http.StatusNotFound
	case core.ErrCodeAccessDenied:
		return http.StatusForbidden
	case core.ErrCodeNotIdentified, core.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
