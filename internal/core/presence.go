package core

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// PresenceRegistry tracks live connections, the identity bound to each and
// the roster of every channel. All accessors return snapshots.
type PresenceRegistry struct {
	mu sync.RWMutex

	sessions    map[string]*Client
	identities  map[string]string
	rosters     map[string]map[string]*Client
	memberships map[string]map[string]struct{}
}

// NewPresenceRegistry returns an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		sessions:    make(map[string]*Client),
		identities:  make(map[string]string),
		rosters:     make(map[string]map[string]*Client),
		memberships: make(map[string]map[string]struct{}),
	}
}

// Connect registers an anonymous session. Returns false if c is already known.
func (p *PresenceRegistry) Connect(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[c.ID]; ok {
		return false
	}
	p.sessions[c.ID] = c
	return true
}

// AttachIdentity binds identity to c. The first identity wins; later calls
// return false and change nothing.
func (p *PresenceRegistry) AttachIdentity(c *Client, identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[c.ID]; !ok {
		return false
	}
	if _, ok := p.identities[c.ID]; ok {
		return false
	}
	p.identities[c.ID] = identity
	return true
}

// DetachIdentity drops c from every roster and forgets its session. It
// reports whether an identity was attached. Safe to call more than once.
func (p *PresenceRegistry) DetachIdentity(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for channel := range p.memberships[c.ID] {
		p.removeFromRoster(channel, c.ID)
	}
	delete(p.memberships, c.ID)
	delete(p.sessions, c.ID)

	_, hadIdentity := p.identities[c.ID]
	delete(p.identities, c.ID)
	return hadIdentity
}

// JoinRoster adds c to channel. Returns false if c was already a member.
func (p *PresenceRegistry) JoinRoster(channel string, c *Client) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.identities[c.ID]; !ok {
		return false, ErrNotIdentified
	}

	roster, ok := p.rosters[channel]
	if !ok {
		roster = make(map[string]*Client)
		p.rosters[channel] = roster
	}
	if _, ok := roster[c.ID]; ok {
		return false, nil
	}
	roster[c.ID] = c

	joined, ok := p.memberships[c.ID]
	if !ok {
		joined = make(map[string]struct{})
		p.memberships[c.ID] = joined
	}
	joined[channel] = struct{}{}
	return true, nil
}

// LeaveRoster removes c from channel. Returns false if it was not a member.
func (p *PresenceRegistry) LeaveRoster(channel string, c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.rosters[channel][c.ID]; !ok {
		return false
	}
	p.removeFromRoster(channel, c.ID)
	delete(p.memberships[c.ID], channel)
	return true
}

// removeFromRoster expects p.mu to be held.
func (p *PresenceRegistry) removeFromRoster(channel, clientID string) {
	roster, ok := p.rosters[channel]
	if !ok {
		return
	}
	delete(roster, clientID)
	if len(roster) == 0 {
		delete(p.rosters, channel)
	}
}

// Roster returns the connections currently joined to channel.
func (p *PresenceRegistry) Roster(channel string) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return lo.Values(p.rosters[channel])
}

// IsMember reports whether c is in channel's roster.
func (p *PresenceRegistry) IsMember(channel string, c *Client) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.rosters[channel][c.ID]
	return ok
}

// Identity returns the identity bound to c, if any.
func (p *PresenceRegistry) Identity(c *Client) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	identity, ok := p.identities[c.ID]
	return identity, ok
}

// Channels returns the channels c has joined, sorted.
func (p *PresenceRegistry) Channels(c *Client) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	channels := lo.Keys(p.memberships[c.ID])
	sort.Strings(channels)
	return channels
}

// OnlineUsers returns every identity with at least one live session, sorted
// and listed once.
func (p *PresenceRegistry) OnlineUsers() []string {
	p.mu.RLock()
	users := lo.Uniq(lo.Values(p.identities))
	p.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Connections returns every registered session, identified or not.
func (p *PresenceRegistry) Connections() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return lo.Values(p.sessions)
}
