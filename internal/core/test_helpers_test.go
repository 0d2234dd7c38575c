package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-channels/internal/store"
	"github.com/vovakirdan/wirechat-channels/internal/store/memory"
)

var defaultChannels = []string{"general", "random", "support"}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// assertNoEvent drains ch for wait and fails if an event of kind shows up.
func assertNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		case <-timer.C:
			return
		}
	}
}

func mustError(t *testing.T, c *Client, code string) {
	t.Helper()

	ev := mustEvent(t, c.Events, EventError)
	if ev.Error == nil || ev.Error.Code != code {
		t.Fatalf("expected %s error, got %+v", code, ev.Error)
	}
}

// newTestHub runs a hub over a seeded in-memory store until the test ends.
func newTestHub(t *testing.T, opts ...Option) (*Hub, *memory.Store) {
	t.Helper()

	st := memory.New()
	if err := store.Seed(context.Background(), st, defaultChannels); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return runHub(t, st, opts...), st
}

func runHub(t *testing.T, st store.ChannelStore, opts ...Option) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(st, opts...)
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// connect registers a client, consumes its channel list and identifies it
// when identity is set.
func connect(t *testing.T, hub *Hub, id, identity string) *Client {
	t.Helper()

	c := NewClient(id)
	hub.RegisterClient(c)
	mustEvent(t, c.Events, EventChannelList)
	if identity != "" {
		if err := hub.Identify(c, identity); err != nil {
			t.Fatalf("identify %s: %v", identity, err)
		}
	}
	return c
}

// join sends a join command and waits until the history reply confirms it.
func join(t *testing.T, c *Client, channel string) *Event {
	t.Helper()

	c.Commands <- &Command{Kind: CommandJoinChannel, Channel: channel}
	return mustEvent(t, c.Events, EventHistory)
}

type published struct {
	topic   string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic: topic, payload: payload})
	return nil
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	topics := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		topics = append(topics, ev.topic)
	}
	return topics
}
