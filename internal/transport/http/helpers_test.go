package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-channels/internal/auth"
	"github.com/vovakirdan/wirechat-channels/internal/config"
	"github.com/vovakirdan/wirechat-channels/internal/core"
	"github.com/vovakirdan/wirechat-channels/internal/proto"
	"github.com/vovakirdan/wirechat-channels/internal/store"
	"github.com/vovakirdan/wirechat-channels/internal/store/memory"
)

type testEnv struct {
	ts    *httptest.Server
	hub   *core.Hub
	auth  *auth.Service
	store *memory.Store
	cfg   config.Config
}

// newTestEnv serves the full router over a seeded in-memory store.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	for _, m := range mutate {
		m(&cfg)
	}

	st := memory.New()
	if err := store.Seed(context.Background(), st, cfg.DefaultChannels); err != nil {
		t.Fatalf("seed: %v", err)
	}

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	})

	hub := core.NewHub(st,
		core.WithHistoryLimit(cfg.HistoryLimit),
		core.WithMembershipEnforcement(cfg.EnforceMembership),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	disabledLogger := zerolog.Nop()
	ts := httptest.NewServer(NewRouter(hub, authService, &cfg, &disabledLogger))
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})

	return &testEnv{ts: ts, hub: hub, auth: authService, store: st, cfg: cfg}
}

// wireFrame mirrors proto.Outbound with the payload left raw.
type wireFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

// readEvent skips frames until an event named name arrives and decodes its data into out.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, name string, out any) {
	t.Helper()

	for {
		var frame wireFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("waiting for %s: %v", name, err)
		}
		if frame.Type != proto.OutboundTypeEvent || frame.Event != name {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(frame.Data, out); err != nil {
				t.Fatalf("decode %s: %v", name, err)
			}
		}
		return
	}
}

// readError skips frames until an error frame arrives.
func readError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		var frame wireFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("waiting for error: %v", err)
		}
		if frame.Type == proto.OutboundTypeError && frame.Error != nil {
			return frame.Error
		}
	}
}

// identify says hello as user and waits for the online set to include it.
func identify(t *testing.T, ctx context.Context, conn *websocket.Conn, hello proto.HelloData, want string) {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeHello, hello)
	for {
		var online proto.EventOnlineUsersData
		readEvent(t, ctx, conn, proto.EventOnlineUsers, &online)
		for _, u := range online.Users {
			if u == want {
				return
			}
		}
	}
}

func joinChannel(t *testing.T, ctx context.Context, conn *websocket.Conn, channel string) proto.EventHistoryData {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeJoin, proto.ChannelData{Channel: channel})
	var history proto.EventHistoryData
	readEvent(t, ctx, conn, proto.EventHistory, &history)
	return history
}
