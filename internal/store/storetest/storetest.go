// Package storetest holds the behaviour every store.ChannelStore backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-channels/internal/store"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) store.ChannelStore

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndList", func(t *testing.T) { testCreateAndList(t, newStore(t)) })
	t.Run("DuplicateChannel", func(t *testing.T) { testDuplicateChannel(t, newStore(t)) })
	t.Run("UnknownChannel", func(t *testing.T) { testUnknownChannel(t, newStore(t)) })
	t.Run("AppendOrder", func(t *testing.T) { testAppendOrder(t, newStore(t)) })
	t.Run("ChannelsAreIsolated", func(t *testing.T) { testChannelsAreIsolated(t, newStore(t)) })
	t.Run("ConcurrentAppends", func(t *testing.T) { testConcurrentAppends(t, newStore(t)) })
	t.Run("PrefixNames", func(t *testing.T) { testPrefixNames(t, newStore(t)) })
}

func message(channel, author, text string, at time.Time) store.Message {
	return store.Message{
		ID:        fmt.Sprintf("%s-%s-%d", channel, author, at.UnixNano()),
		Channel:   channel,
		Author:    author,
		Text:      text,
		CreatedAt: at,
	}
}

func testCreateAndList(t *testing.T, st store.ChannelStore) {
	req := require.New(t)
	ctx := context.Background()

	for _, name := range []string{"general", "random", "support"} {
		req.NoError(st.CreateChannel(ctx, name))
	}

	names, err := st.ListChannels(ctx)
	req.NoError(err)
	req.Equal([]string{"general", "random", "support"}, names)

	log, err := st.ReadLog(ctx, "random")
	req.NoError(err)
	req.Empty(log)
}

func testDuplicateChannel(t *testing.T, st store.ChannelStore) {
	req := require.New(t)
	ctx := context.Background()

	req.NoError(st.CreateChannel(ctx, "general"))
	req.ErrorIs(st.CreateChannel(ctx, "general"), store.ErrChannelExists)

	names, err := st.ListChannels(ctx)
	req.NoError(err)
	req.Equal([]string{"general"}, names)
}

func testUnknownChannel(t *testing.T, st store.ChannelStore) {
	req := require.New(t)
	ctx := context.Background()

	err := st.AppendMessage(ctx, "ghost", message("ghost", "alice", "boo", time.Now()))
	req.ErrorIs(err, store.ErrChannelNotFound)

	_, err = st.ReadLog(ctx, "ghost")
	req.ErrorIs(err, store.ErrChannelNotFound)

	req.ErrorIs(st.CreateChannel(ctx, ""), store.ErrInvalidName)
}

func testAppendOrder(t *testing.T, st store.ChannelStore) {
	req := require.New(t)
	ctx := context.Background()
	req.NoError(st.CreateChannel(ctx, "general"))

	base := time.UnixMilli(1_700_000_000_000).UTC()
	var want []store.Message
	for i := 0; i < 25; i++ {
		// Timestamps deliberately go backwards: order is append order, not time order.
		msg := message("general", "alice", fmt.Sprintf("msg %d", i), base.Add(-time.Duration(i)*time.Second))
		req.NoError(st.AppendMessage(ctx, "general", msg))
		want = append(want, msg)
	}

	got, err := st.ReadLog(ctx, "general")
	req.NoError(err)
	req.Len(got, len(want))
	for i := range want {
		req.Equal(want[i].ID, got[i].ID)
		req.Equal(want[i].Author, got[i].Author)
		req.Equal(want[i].Text, got[i].Text)
		req.Equal("general", got[i].Channel)
		req.True(want[i].CreatedAt.Equal(got[i].CreatedAt), "timestamp %d", i)
	}
}

func testChannelsAreIsolated(t *testing.T, st store.ChannelStore) {
	req := require.New(t)
	ctx := context.Background()
	req.NoError(st.CreateChannel(ctx, "general"))
	req.NoError(st.CreateChannel(ctx, "random"))

	req.NoError(st.AppendMessage(ctx, "general", message("general", "alice", "hi", time.Now())))

	log, err := st.ReadLog(ctx, "random")
	req.NoError(err)
	req.Empty(log)
}

func testConcurrentAppends(t *testing.T, st store.ChannelStore) {
	req := require.New(t)
	ctx := context.Background()
	req.NoError(st.CreateChannel(ctx, "general"))
	req.NoError(st.CreateChannel(ctx, "random"))

	const writers, perWriter = 8, 20
	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter*2)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				at := time.Now()
				text := fmt.Sprintf("w%d-%d", w, i)
				msg := message("general", fmt.Sprintf("user%d", w), text, at)
				msg.ID = text
				errs <- st.AppendMessage(ctx, "general", msg)
				other := message("random", "bob", text, at)
				other.ID = "r-" + text
				errs <- st.AppendMessage(ctx, "random", other)
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	log, err := st.ReadLog(ctx, "general")
	req.NoError(err)
	req.Len(log, writers*perWriter)

	// Each writer's own messages keep their relative order.
	seen := make(map[string]int)
	for _, msg := range log {
		var w, i int
		_, err := fmt.Sscanf(msg.ID, "w%d-%d", &w, &i)
		req.NoError(err)
		key := fmt.Sprintf("w%d", w)
		req.Equal(seen[key], i)
		seen[key] = i + 1
	}

	other, err := st.ReadLog(ctx, "random")
	req.NoError(err)
	req.Len(other, writers*perWriter)
}

func testPrefixNames(t *testing.T, st store.ChannelStore) {
	req := require.New(t)
	ctx := context.Background()
	req.NoError(st.CreateChannel(ctx, "dev"))
	req.NoError(st.CreateChannel(ctx, "dev:ops"))

	req.NoError(st.AppendMessage(ctx, "dev:ops", message("dev:ops", "alice", "deploy", time.Now())))

	log, err := st.ReadLog(ctx, "dev")
	req.NoError(err)
	req.Empty(log)
}
