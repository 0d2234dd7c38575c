package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vovakirdan/wirechat-channels/internal/store"
)

type channelLog struct {
	mu       sync.Mutex
	messages []store.Message
}

// Store keeps channels and accounts in process memory. Used for tests and
// for throwaway deployments.
type Store struct {
	mu    sync.RWMutex
	order []string
	logs  map[string]*channelLog

	usersMu    sync.RWMutex
	users      map[string]*store.User
	nextUserID int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		logs:  make(map[string]*channelLog),
		users: make(map[string]*store.User),
	}
}

// CreateChannel registers an empty log under name.
func (s *Store) CreateChannel(_ context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return store.ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.logs[name]; exists {
		return store.ErrChannelExists
	}
	s.logs[name] = &channelLog{}
	s.order = append(s.order, name)
	return nil
}

// AppendMessage appends msg under the channel's own lock.
func (s *Store) AppendMessage(_ context.Context, channel string, msg store.Message) error {
	log, err := s.log(channel)
	if err != nil {
		return err
	}

	log.mu.Lock()
	log.messages = append(log.messages, msg)
	log.mu.Unlock()
	return nil
}

// ReadLog returns a copy of the channel log.
func (s *Store) ReadLog(_ context.Context, channel string) ([]store.Message, error) {
	log, err := s.log(channel)
	if err != nil {
		return nil, err
	}

	log.mu.Lock()
	defer log.mu.Unlock()

	out := make([]store.Message, len(log.messages))
	copy(out, log.messages)
	return out, nil
}

// ListChannels returns channel names in creation order.
func (s *Store) ListChannels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

func (s *Store) log(channel string) (*channelLog, error) {
	s.mu.RLock()
	log, ok := s.logs[channel]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrChannelNotFound
	}
	return log, nil
}

// CreateUser stores a new account.
func (s *Store) CreateUser(_ context.Context, username, passwordHash string) (*store.User, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	if _, exists := s.users[username]; exists {
		return nil, store.ErrUserExists
	}
	s.nextUserID++
	user := &store.User{
		ID:           s.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.users[username] = user

	cp := *user
	return &cp, nil
}

// GetUserByUsername retrieves an account by username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}
