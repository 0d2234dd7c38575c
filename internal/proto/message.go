package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello         = "hello"
	InboundTypeJoin          = "join"
	InboundTypeLeave         = "leave"
	InboundTypeMsg           = "msg"
	InboundTypeCreateChannel = "create_channel"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventChannelList    = "channel_list"
	EventOnlineUsers    = "online_users"
	EventMessage        = "message"
	EventChannelCreated = "channel_created"
	EventHistory        = "history"
)

// HelloData is sent by the client to introduce itself. Token, when present,
// takes precedence over User.
type HelloData struct {
	User     string `json:"user"`
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// ChannelData names the channel of a join, leave or create_channel request.
type ChannelData struct {
	Channel string `json:"channel"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventChannelListData lists public channels in creation order.
type EventChannelListData struct {
	Channels []string `json:"channels"`
}

// EventOnlineUsersData lists every online identity once.
type EventOnlineUsersData struct {
	Users []string `json:"users"`
}

// EventMessageData is a committed message. TS is unix milliseconds.
type EventMessageData struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	User    string `json:"user"`
	Text    string `json:"text"`
	TS      int64  `json:"ts"`
}

// EventChannelCreatedData announces a new public channel.
type EventChannelCreatedData struct {
	Channel string `json:"channel"`
}

// EventHistoryData replays the tail of a channel log to a joining client.
type EventHistoryData struct {
	Channel  string             `json:"channel"`
	Messages []EventMessageData `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
