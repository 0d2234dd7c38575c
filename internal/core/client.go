package core

import "sync"

const (
	commandBuffer = 16
	eventBuffer   = 64
)

// Client is one live connection as seen by the core layer. The transport
// owns its lifetime; the core only looks it up by ID.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, eventBuffer),
		done:     make(chan struct{}),
	}
}

// Done is closed once the client has been unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// deliver hands ev to the client without blocking. A closed client or a full
// buffer drops the event for this client only.
func (c *Client) deliver(ev *Event) bool {
	if c.closed() {
		return false
	}
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
