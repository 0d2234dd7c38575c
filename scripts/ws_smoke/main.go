package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
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

// ws_smoke connects two users to a running server, has the first one post
// into a channel and checks that the second receives it.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	channel := flag.String("channel", "general", "channel name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sender, err := connect(ctx, *addr, "smoke_sender", *channel)
	if err != nil {
		return err
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	receiver, err := connect(ctx, *addr, "smoke_receiver", *channel)
	if err != nil {
		return err
	}
	defer receiver.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, sender, proto.InboundTypeMsg, proto.MsgData{Channel: *channel, Text: *text}); err != nil {
		return err
	}

	for {
		in, err := read(ctx, receiver)
		if err != nil {
			return fmt.Errorf("waiting for message: %w", err)
		}
		if in.Event != proto.EventMessage {
			continue
		}
		var msg proto.EventMessageData
		if err := json.Unmarshal(in.Data, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		if msg.Text == *text && msg.User == "smoke_sender" {
			log.Printf("ok: %s delivered %q to #%s as %s", msg.User, msg.Text, msg.Channel, msg.ID)
			return nil
		}
	}
}

// connect dials, identifies and joins, returning once the join is confirmed.
func connect(ctx context.Context, addr, user, channel string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", user, err)
	}
	if err := send(ctx, conn, proto.InboundTypeHello, proto.HelloData{User: user}); err != nil {
		return nil, err
	}
	if err := send(ctx, conn, proto.InboundTypeJoin, proto.ChannelData{Channel: channel}); err != nil {
		return nil, err
	}
	for {
		in, err := read(ctx, conn)
		if err != nil {
			return nil, fmt.Errorf("%s join: %w", user, err)
		}
		if in.Error != nil {
			return nil, fmt.Errorf("%s join: %s: %s", user, in.Error.Code, in.Error.Msg)
		}
		if in.Event == proto.EventHistory {
			return conn, nil
		}
	}
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	return wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload})
}

func read(ctx context.Context, conn *websocket.Conn) (frame, error) {
	var in frame
	err := wsjson.Read(ctx, conn, &in)
	return in, err
}
