package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connected(t *testing.T, p *PresenceRegistry, id, identity string) *Client {
	t.Helper()
	c := NewClient(id)
	require.True(t, p.Connect(c))
	if identity != "" {
		require.True(t, p.AttachIdentity(c, identity))
	}
	return c
}

func TestPresenceOnlineUsersDeduplicated(t *testing.T) {
	p := NewPresenceRegistry()
	first := connected(t, p, "c1", "alice")
	connected(t, p, "c2", "alice")
	connected(t, p, "c3", "bob")
	connected(t, p, "c4", "")

	assert.Equal(t, []string{"alice", "bob"}, p.OnlineUsers())
	assert.Len(t, p.Connections(), 4)

	p.DetachIdentity(first)
	assert.Equal(t, []string{"alice", "bob"}, p.OnlineUsers(), "alice still has a live session")
}

func TestPresenceFirstIdentityWins(t *testing.T) {
	p := NewPresenceRegistry()
	c := connected(t, p, "c1", "alice")

	assert.False(t, p.AttachIdentity(c, "mallory"))

	identity, ok := p.Identity(c)
	require.True(t, ok)
	assert.Equal(t, "alice", identity)
}

func TestPresenceAttachUnknownClient(t *testing.T) {
	p := NewPresenceRegistry()
	assert.False(t, p.AttachIdentity(NewClient("ghost"), "alice"))
	assert.Empty(t, p.OnlineUsers())
}

func TestPresenceJoinRequiresIdentity(t *testing.T) {
	p := NewPresenceRegistry()
	anon := connected(t, p, "c1", "")

	_, err := p.JoinRoster("general", anon)
	require.ErrorIs(t, err, ErrNotIdentified)
	assert.Empty(t, p.Roster("general"))
}

func TestPresenceJoinLeave(t *testing.T) {
	p := NewPresenceRegistry()
	alice := connected(t, p, "c1", "alice")

	added, err := p.JoinRoster("general", alice)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = p.JoinRoster("general", alice)
	require.NoError(t, err)
	assert.False(t, added, "second join is a no-op")
	assert.Len(t, p.Roster("general"), 1)
	assert.True(t, p.IsMember("general", alice))

	assert.True(t, p.LeaveRoster("general", alice))
	assert.False(t, p.LeaveRoster("general", alice))
	assert.False(t, p.IsMember("general", alice))
	assert.Empty(t, p.Roster("general"))
	assert.Empty(t, p.Channels(alice))
}

func TestPresenceDetachRemovesFromEveryRoster(t *testing.T) {
	p := NewPresenceRegistry()
	alice := connected(t, p, "c1", "alice")
	bob := connected(t, p, "c2", "bob")

	for _, ch := range []string{"general", "random", "dm-alice-bob"} {
		_, err := p.JoinRoster(ch, alice)
		require.NoError(t, err)
	}
	_, err := p.JoinRoster("general", bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"dm-alice-bob", "general", "random"}, p.Channels(alice))

	assert.True(t, p.DetachIdentity(alice))
	assert.False(t, p.DetachIdentity(alice), "detach is idempotent")

	for _, ch := range []string{"general", "random", "dm-alice-bob"} {
		assert.False(t, p.IsMember(ch, alice), ch)
	}
	assert.Equal(t, []*Client{bob}, p.Roster("general"))
	assert.Equal(t, []string{"bob"}, p.OnlineUsers())
	assert.Len(t, p.Connections(), 1)
}

func TestPresenceRosterIsSnapshot(t *testing.T) {
	p := NewPresenceRegistry()
	alice := connected(t, p, "c1", "alice")
	_, err := p.JoinRoster("general", alice)
	require.NoError(t, err)

	roster := p.Roster("general")
	p.LeaveRoster("general", alice)
	assert.Len(t, roster, 1)
}

func TestPresenceConcurrentAccess(t *testing.T) {
	p := NewPresenceRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := NewClient(fmt.Sprintf("c%d", i))
			p.Connect(c)
			p.AttachIdentity(c, fmt.Sprintf("user%d", i%4))
			_, _ = p.JoinRoster("general", c)
			_ = p.Roster("general")
			_ = p.OnlineUsers()
			if i%2 == 0 {
				p.DetachIdentity(c)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, p.Roster("general"), 16)
	assert.Equal(t, []string{"user1", "user3"}, p.OnlineUsers())
}
