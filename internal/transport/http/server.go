package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/auth"
	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/core"
)

// NewServer builds the HTTP server: REST endpoints under /api and the
// WebSocket endpoint at /ws.
func NewServer(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, authService, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires every route onto a gin engine.
func NewRouter(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})
	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, cfg, logger)))

	accounts := NewAccountHandlers(authService, logger)
	channelHandlers := NewChannelHandlers(hub, logger)
	userHandlers := NewUserHandlers(hub, logger)

	identity := OptionalAuthMiddleware(authService, logger)
	if cfg.RequireAuth {
		identity = AuthMiddleware(authService, logger)
	}

	api := router.Group("/api")
	api.POST("/register", accounts.Register)
	api.POST("/login", accounts.Login)

	protected := api.Group("", identity)
	protected.GET("/channels", channelHandlers.ListChannels)
	protected.POST("/channels", channelHandlers.CreateChannel)
	protected.GET("/channels/:name/messages", channelHandlers.Messages)
	protected.GET("/users/online", userHandlers.OnlineUsers)

	return router
}
