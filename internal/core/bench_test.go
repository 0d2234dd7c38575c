package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/vovakirdan/wirechat-channels/internal/store"
	"github.com/vovakirdan/wirechat-channels/internal/store/memory"
)

func benchmarkChannelBroadcast(b *testing.B, recipients int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := memory.New()
	if err := store.Seed(ctx, st, []string{"bench"}); err != nil {
		b.Fatal(err)
	}
	hub := NewHub(st, WithHistoryLimit(0))
	go hub.Run(ctx)

	register := func(id string) *Client {
		c := NewClient(id)
		hub.RegisterClient(c)
		if err := hub.Identify(c, id); err != nil {
			b.Fatal(err)
		}
		if err := hub.Join(ctx, c, "bench"); err != nil {
			b.Fatal(err)
		}
		return c
	}

	sender := register("sender")
	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		clients = append(clients, register(fmt.Sprintf("c%d", i)))
	}

	// Drain events for everyone but the target to avoid drops on full buffers.
	target := clients[0]
	for _, c := range append(clients[1:], sender) {
		go func(cl *Client) {
			for {
				select {
				case <-cl.Events:
				case <-cl.Done():
					return
				}
			}
		}(c)
	}
	for len(target.Events) > 0 {
		<-target.Events
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := hub.Send(ctx, sender, "bench", "payload"); err != nil {
			b.Fatal(err)
		}
		for ev := range target.Events {
			if ev.Kind == EventMessage {
				break
			}
		}
	}
}

func BenchmarkChannelBroadcast_10(b *testing.B)  { benchmarkChannelBroadcast(b, 10) }
func BenchmarkChannelBroadcast_100(b *testing.B) { benchmarkChannelBroadcast(b, 100) }
func BenchmarkChannelBroadcast_500(b *testing.B) { benchmarkChannelBroadcast(b, 500) }
