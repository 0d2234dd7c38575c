package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/auth"
	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/proto"
)

// Protocol error codes produced by the transport itself.
const (
	errCodeUnsupportedVersion = "unsupported_version"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub         *core.Hub
	authService *auth.Service
	log         *zerolog.Logger

	readLimit   int64
	rateLimit   int
	requireAuth bool
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		hub:         hub,
		authService: authService,
		log:         logger,
		readLimit:   cfg.MaxMessageBytes,
		rateLimit:   cfg.RateLimitPerMinute,
		requireAuth: cfg.RequireAuth,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(uuid.NewString())
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "connection error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.rateLimit)

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		if !limiter.allow() {
			if err := wsjson.Write(ctx, conn, errorOutbound(core.ErrCodeRateLimited, "rate limit exceeded")); err != nil {
				return err
			}
			continue
		}

		var (
			cmd      *core.Command
			protoErr *proto.Error
			err      error
		)
		if inbound.Type == proto.InboundTypeHello {
			cmd, protoErr, err = h.helloCommand(inbound)
		} else {
			cmd, protoErr, err = inboundToCommand(inbound)
		}
		if err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("malformed inbound frame")
			protoErr = &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed frame"}
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// helloCommand turns a hello frame into an identify command. A token, when
// present, decides the identity; otherwise the claimed name is used unless
// the server requires authentication.
func (h *WSHandler) helloCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	var hello proto.HelloData
	if err := json.Unmarshal(inbound.Data, &hello); err != nil {
		return nil, nil, err
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		return nil, &proto.Error{Code: errCodeUnsupportedVersion, Msg: "unsupported protocol version"}, nil
	}

	if hello.Token != "" {
		claims, err := h.authService.ValidateToken(hello.Token)
		if err != nil {
			h.log.Debug().Err(err).Msg("hello with invalid token")
			return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "invalid token"}, nil
		}
		return &core.Command{Kind: core.CommandIdentify, Identity: claims.Username}, nil, nil
	}

	if h.requireAuth {
		return nil, &proto.Error{Code: core.ErrCodeUnauthorized, Msg: "token required"}, nil
	}
	user := strings.TrimSpace(hello.User)
	if !auth.ValidUsername(user) {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid user name"}, nil
	}
	return &core.Command{Kind: core.CommandIdentify, Identity: user}, nil, nil
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Debug().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
