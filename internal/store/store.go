//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrChannelExists is returned when creating a channel whose name is taken.
	ErrChannelExists = errors.New("channel already exists")
	// ErrChannelNotFound is returned for operations on an unknown channel.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrInvalidName is returned when a backend cannot store a channel under the given name.
	ErrInvalidName = errors.New("invalid channel name")
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no account matches.
	ErrUserNotFound = errors.New("user not found")
)

// Message is a persisted chat message. Immutable once appended.
type Message struct {
	ID        string
	Channel   string
	Author    string
	Text      string
	CreatedAt time.Time
}

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// ChannelStore is the durable registry of channels and their append-only logs.
//
// Implementations must serialize appends to the same channel and must not
// block appends to other channels behind them. ReadLog must never observe a
// partially written log.
type ChannelStore interface {
	// CreateChannel registers an empty log under name.
	CreateChannel(ctx context.Context, name string) error

	// AppendMessage durably appends msg to the channel log.
	AppendMessage(ctx context.Context, channel string, msg Message) error

	// ReadLog returns the full log of a channel in append order.
	ReadLog(ctx context.Context, channel string) ([]Message, error)

	// ListChannels returns all channel names in creation order.
	ListChannels(ctx context.Context) ([]string, error)

	// Close releases the backend.
	Close() error
}

// UserStore handles account persistence.
type UserStore interface {
	// CreateUser stores a new account with an already hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByUsername retrieves an account by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// Seed creates every channel in names that does not exist yet.
func Seed(ctx context.Context, st ChannelStore, names []string) error {
	for _, name := range names {
		if err := st.CreateChannel(ctx, name); err != nil && !errors.Is(err, ErrChannelExists) {
			return err
		}
	}
	return nil
}
