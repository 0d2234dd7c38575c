package core

import (
	"time"

	"github.com/vovakirdan/wirechat-channels/internal/store"
)

// Message is the domain model for a chat message.
type Message struct {
	ID        string
	Channel   string
	Author    string
	Text      string
	CreatedAt time.Time
}

func toStoreMessage(m Message) store.Message {
	return store.Message{
		ID:        m.ID,
		Channel:   m.Channel,
		Author:    m.Author,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func fromStoreMessage(m store.Message) Message {
	return Message{
		ID:        m.ID,
		Channel:   m.Channel,
		Author:    m.Author,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}
