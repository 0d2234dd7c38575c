package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/wirechat-channels/internal/events"
	"github.com/vovakirdan/wirechat-channels/internal/store"
)

// DefaultHistoryLimit is how many trailing messages a joining client receives.
const DefaultHistoryLimit = 50

// Hub coordinates connections, channel rosters and message fan-out.
//
// Every registered client is served by its own goroutine. Work on one channel
// is serialized by that channel's lock, so the order messages are appended is
// the order every member receives them. Different channels never wait on each
// other.
type Hub struct {
	store     store.ChannelStore
	presence  *PresenceRegistry
	policy    *AccessPolicy
	publisher events.Publisher
	log       *zerolog.Logger

	historyLimit      int
	enforceMembership bool

	locks store.ChannelLocks

	// presenceMu keeps online_users snapshots in the order they were taken.
	presenceMu sync.Mutex

	// lifeMu orders registrations against shutdown so Run sees every client
	// it has to close and wg.Add never races wg.Wait.
	lifeMu  sync.Mutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.log = logger
		}
	}
}

// WithPublisher publishes domain events after every committed state change.
func WithPublisher(p events.Publisher) Option {
	return func(h *Hub) { h.publisher = p }
}

// WithHistoryLimit sets how many messages a join replays. Zero disables history.
func WithHistoryLimit(n int) Option {
	return func(h *Hub) {
		if n >= 0 {
			h.historyLimit = n
		}
	}
}

// WithMembershipEnforcement controls whether senders must have joined the channel.
func WithMembershipEnforcement(enforce bool) Option {
	return func(h *Hub) { h.enforceMembership = enforce }
}

// WithPresence shares an existing registry with the hub.
func WithPresence(p *PresenceRegistry) Option {
	return func(h *Hub) {
		if p != nil {
			h.presence = p
		}
	}
}

// NewHub creates a hub on top of st.
func NewHub(st store.ChannelStore, opts ...Option) *Hub {
	nop := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		store:             st,
		presence:          NewPresenceRegistry(),
		policy:            NewAccessPolicy(),
		log:               &nop,
		historyLimit:      DefaultHistoryLimit,
		enforceMembership: true,
		ctx:               ctx,
		cancel:            cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Presence exposes the registry backing the hub.
func (h *Hub) Presence() *PresenceRegistry {
	return h.presence
}

// Run blocks until ctx is done, then disconnects every client and waits for
// their command loops to exit.
func (h *Hub) Run(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-h.ctx.Done():
	}

	h.lifeMu.Lock()
	h.stopped = true
	h.cancel()
	h.lifeMu.Unlock()

	for _, c := range h.presence.Connections() {
		h.UnregisterClient(c)
	}
	h.wg.Wait()
}

// RegisterClient adds an anonymous connection, sends it the channel list and
// starts its command loop.
func (h *Hub) RegisterClient(c *Client) {
	h.lifeMu.Lock()
	if h.stopped {
		h.lifeMu.Unlock()
		c.close()
		return
	}
	if !h.presence.Connect(c) {
		h.lifeMu.Unlock()
		return
	}
	h.wg.Add(1)
	h.lifeMu.Unlock()

	channels, err := h.Channels(h.ctx)
	if err != nil {
		h.log.Error().Err(err).Str("client_id", c.ID).Msg("failed to list channels")
		channels = []string{}
	}
	c.deliver(&Event{Kind: EventChannelList, Channels: channels})

	go h.serve(c)

	h.log.Debug().Str("client_id", c.ID).Msg("client registered")
}

// UnregisterClient removes the connection from every roster and closes it.
// Calling it again is a no-op.
func (h *Hub) UnregisterClient(c *Client) {
	identified := h.presence.DetachIdentity(c)
	c.close()

	if identified {
		h.log.Debug().Str("client_id", c.ID).Msg("client disconnected")
		h.broadcastPresence()
	}
}

func (h *Hub) serve(c *Client) {
	defer h.wg.Done()

	for {
		select {
		case <-c.Done():
			return
		case <-h.ctx.Done():
			return
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			if err := h.handle(h.ctx, c, cmd); err != nil {
				h.reject(c, err)
			}
		}
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) error {
	switch cmd.Kind {
	case CommandIdentify:
		return h.Identify(c, cmd.Identity)
	case CommandJoinChannel:
		return h.Join(ctx, c, cmd.Channel)
	case CommandLeaveChannel:
		return h.Leave(c, cmd.Channel)
	case CommandSendMessage:
		_, err := h.Send(ctx, c, cmd.Channel, cmd.Text)
		return err
	case CommandCreateChannel:
		_, err := h.CreateChannel(ctx, cmd.Channel)
		return err
	default:
		return ErrBadRequest
	}
}

// reject tells the initiating client why its command failed. Nobody else is told.
func (h *Hub) reject(c *Client, err error) {
	ce := ToCoreError(err)

	ev := h.log.Debug()
	if errors.Is(err, ErrIOFailure) || ce.Code == ErrCodeInternal {
		ev = h.log.Error()
	}
	ev.Err(err).Str("client_id", c.ID).Str("code", ce.Code).Msg("command rejected")

	c.deliver(&Event{Kind: EventError, Error: ce})
}

// Identify binds identity to the connection and announces the new online set.
// A connection that already has an identity keeps it.
func (h *Hub) Identify(c *Client, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return ErrBadRequest
	}
	if !h.presence.AttachIdentity(c, identity) {
		return nil
	}

	h.log.Info().Str("client_id", c.ID).Str("user", identity).Msg("client identified")
	h.broadcastPresence()
	return nil
}

// Join adds the connection to channel's roster and replays the log tail to it.
// Direct channels are created on first join by one of their two members.
func (h *Hub) Join(ctx context.Context, c *Client, channel string) error {
	identity, ok := h.presence.Identity(c)
	if !ok {
		return ErrNotIdentified
	}
	if channel == "" {
		return ErrBadRequest
	}
	if !h.policy.CanJoin(identity, channel) {
		return ErrAccessDenied
	}
	if IsDirect(channel) {
		if err := h.ensureDirect(ctx, channel); err != nil {
			return err
		}
	}

	lock := h.locks.Get(channel)
	lock.Lock()
	defer lock.Unlock()

	log, err := h.store.ReadLog(ctx, channel)
	if err != nil {
		return fromStoreError(err)
	}

	added, err := h.presence.JoinRoster(channel, c)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	h.log.Debug().Str("client_id", c.ID).Str("user", identity).Str("channel", channel).Msg("joined channel")

	if h.historyLimit > 0 {
		tail := lo.Map(lastN(log, h.historyLimit), func(m store.Message, _ int) Message {
			return fromStoreMessage(m)
		})
		c.deliver(&Event{Kind: EventHistory, Channel: channel, Messages: tail})
	}
	return nil
}

func (h *Hub) ensureDirect(ctx context.Context, channel string) error {
	if !validDirectName(channel) {
		return ErrInvalidName
	}
	err := h.store.CreateChannel(ctx, channel)
	if err == nil || errors.Is(err, store.ErrChannelExists) {
		return nil
	}
	return fromStoreError(err)
}

// Leave removes the connection from channel's roster.
func (h *Hub) Leave(c *Client, channel string) error {
	if _, ok := h.presence.Identity(c); !ok {
		return ErrNotIdentified
	}
	if !h.presence.LeaveRoster(channel, c) {
		return ErrNotMember
	}
	h.log.Debug().Str("client_id", c.ID).Str("channel", channel).Msg("left channel")
	return nil
}

// Send appends a message authored by the connection's identity and fans it
// out to the channel roster. Nothing is broadcast if the append fails.
func (h *Hub) Send(ctx context.Context, c *Client, channel, text string) (Message, error) {
	identity, ok := h.presence.Identity(c)
	if !ok {
		return Message{}, ErrNotIdentified
	}
	if channel == "" || strings.TrimSpace(text) == "" {
		return Message{}, ErrBadRequest
	}
	if !h.policy.CanJoin(identity, channel) {
		return Message{}, ErrAccessDenied
	}
	if h.enforceMembership && !h.presence.IsMember(channel, c) {
		return Message{}, ErrNotMember
	}

	msg := Message{
		ID:        ulid.Make().String(),
		Channel:   channel,
		Author:    identity,
		Text:      text,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	lock := h.locks.Get(channel)
	lock.Lock()
	if err := h.store.AppendMessage(ctx, channel, toStoreMessage(msg)); err != nil {
		lock.Unlock()
		return Message{}, fromStoreError(err)
	}
	delivered := h.FanOut(channel, msg)
	lock.Unlock()

	h.log.Debug().
		Str("channel", channel).
		Str("user", identity).
		Str("message_id", msg.ID).
		Int("delivered", delivered).
		Msg("message committed")

	h.publish(ctx, events.TopicMessageCommitted, events.MessageCommitted{
		ID:      msg.ID,
		Channel: msg.Channel,
		Author:  msg.Author,
		Text:    msg.Text,
		TS:      msg.CreatedAt.UnixMilli(),
	})
	return msg, nil
}

// FanOut delivers msg to every connection currently in channel's roster and
// returns how many accepted it. Callers that need ordering hold the channel lock.
func (h *Hub) FanOut(channel string, msg Message) int {
	return broadcast(h.presence.Roster(channel), &Event{
		Kind:    EventMessage,
		Channel: channel,
		Message: msg,
	})
}

// CreateChannel registers a public channel and announces it to every connection.
func (h *Hub) CreateChannel(ctx context.Context, raw string) (string, error) {
	name, err := h.policy.CanCreate(raw)
	if err != nil {
		return "", err
	}
	if IsDirect(name) {
		return "", ErrInvalidName
	}
	if err := h.store.CreateChannel(ctx, name); err != nil {
		return "", fromStoreError(err)
	}

	h.log.Info().Str("channel", name).Msg("channel created")
	broadcast(h.presence.Connections(), &Event{Kind: EventChannelCreated, Channel: name})
	h.publish(ctx, events.TopicChannelCreated, events.ChannelCreated{Channel: name})
	return name, nil
}

// Channels lists public channels in creation order.
func (h *Hub) Channels(ctx context.Context) ([]string, error) {
	names, err := h.store.ListChannels(ctx)
	if err != nil {
		return nil, fromStoreError(err)
	}
	return lo.Reject(names, func(name string, _ int) bool { return IsDirect(name) }), nil
}

// History returns up to limit trailing messages of channel; limit <= 0 means
// the whole log. Direct channels are readable by their two members only.
func (h *Hub) History(ctx context.Context, channel, identity string, limit int) ([]Message, error) {
	if IsDirect(channel) && !h.policy.CanJoin(identity, channel) {
		return nil, ErrAccessDenied
	}

	log, err := h.store.ReadLog(ctx, channel)
	if err != nil {
		return nil, fromStoreError(err)
	}
	if limit > 0 {
		log = lastN(log, limit)
	}
	return lo.Map(log, func(m store.Message, _ int) Message { return fromStoreMessage(m) }), nil
}

// OnlineUsers returns the deduplicated identities with a live connection.
func (h *Hub) OnlineUsers() []string {
	return h.presence.OnlineUsers()
}

func (h *Hub) broadcastPresence() {
	h.presenceMu.Lock()
	users := h.presence.OnlineUsers()
	broadcast(h.presence.Connections(), &Event{Kind: EventOnlineUsers, Users: users})
	h.presenceMu.Unlock()

	h.publish(h.ctx, events.TopicPresenceChanged, events.PresenceChanged{Users: users})
}

func (h *Hub) publish(ctx context.Context, topic string, payload any) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(context.WithoutCancel(ctx), topic, payload); err != nil {
		h.log.Warn().Err(err).Str("topic", topic).Msg("failed to publish event")
	}
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
