package events

import "context"

// Topics published by the hub after the matching state change has happened.
const (
	TopicMessageCommitted = "chat.message.committed"
	TopicChannelCreated   = "chat.channel.created"
	TopicPresenceChanged  = "chat.presence.changed"
)

// MessageCommitted is published once a message is durably appended, before fan-out.
type MessageCommitted struct {
	ID      string `json:"id"`
	Channel string `json:"channel"`
	Author  string `json:"author"`
	Text    string `json:"text"`
	TS      int64  `json:"ts"`
}

// ChannelCreated is published after a channel is registered.
type ChannelCreated struct {
	Channel string `json:"channel"`
}

// PresenceChanged carries the full deduplicated online set.
type PresenceChanged struct {
	Users []string `json:"users"`
}

// Publisher sends a payload to a topic. Delivery is at-most-once.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Handler processes the raw JSON payload of one event.
type Handler func(ctx context.Context, topic string, payload []byte) error
