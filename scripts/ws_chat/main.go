package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-channels/internal/proto"
)

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli_user", "username (ignored when -token is set)")
	token := flag.String("token", "", "JWT from /api/login")
	channel := flag.String("channel", "general", "channel to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeHello, proto.HelloData{User: *user, Token: *token, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	if err := send(ctx, conn, proto.InboundTypeJoin, proto.ChannelData{Channel: *channel}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s in #%s\n", *addr, *user, *channel)
	fmt.Println("Type messages and press Enter. /join <name>, /leave <name>, /create <name>. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *channel)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func printMessage(m proto.EventMessageData) {
	ts := time.UnixMilli(m.TS).Format(time.Kitchen)
	fmt.Printf("%s [#%s] %s: %s\n", ts, m.Channel, m.User, m.Text)
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var in frame
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if in.Type == proto.OutboundTypeError && in.Error != nil {
			fmt.Printf("! %s: %s\n", in.Error.Code, in.Error.Msg)
			continue
		}

		switch in.Event {
		case proto.EventMessage:
			var m proto.EventMessageData
			if err := json.Unmarshal(in.Data, &m); err == nil {
				printMessage(m)
			}
		case proto.EventHistory:
			var h proto.EventHistoryData
			if err := json.Unmarshal(in.Data, &h); err == nil {
				fmt.Printf("-- #%s, last %d messages --\n", h.Channel, len(h.Messages))
				for _, m := range h.Messages {
					printMessage(m)
				}
			}
		case proto.EventChannelList:
			var l proto.EventChannelListData
			if err := json.Unmarshal(in.Data, &l); err == nil {
				fmt.Printf("channels: %s\n", strings.Join(l.Channels, ", "))
			}
		case proto.EventChannelCreated:
			var c proto.EventChannelCreatedData
			if err := json.Unmarshal(in.Data, &c); err == nil {
				fmt.Printf("new channel #%s\n", c.Channel)
			}
		case proto.EventOnlineUsers:
			var u proto.EventOnlineUsersData
			if err := json.Unmarshal(in.Data, &u); err == nil {
				fmt.Printf("online: %s\n", strings.Join(u.Users, ", "))
			}
		default:
			fmt.Printf("event=%s data=%s\n", in.Event, in.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, channel string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			var err error
			cmd, arg, _ := strings.Cut(text, " ")
			switch cmd {
			case "/join":
				channel = strings.TrimSpace(arg)
				err = send(ctx, conn, proto.InboundTypeJoin, proto.ChannelData{Channel: channel})
			case "/leave":
				err = send(ctx, conn, proto.InboundTypeLeave, proto.ChannelData{Channel: strings.TrimSpace(arg)})
			case "/create":
				err = send(ctx, conn, proto.InboundTypeCreateChannel, proto.ChannelData{Channel: arg})
			default:
				err = send(ctx, conn, proto.InboundTypeMsg, proto.MsgData{Channel: channel, Text: text})
			}
			if err != nil {
				log.Print(err)
				return
			}
		}
	}
}
