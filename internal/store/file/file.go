package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/vovakirdan/wirechat-channels/internal/store"
)

const (
	registryFile = "channels.json"
	messagesDir  = "messages"
	logSuffix    = ".jsonl"
)

// record is the on-disk shape of one log line.
type record struct {
	ID        string `json:"id"`
	User      string `json:"user"`
	Text      string `json:"text"`
	Channel   string `json:"channel"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

// Store persists a channels.json registry plus one JSON-lines log per channel.
type Store struct {
	fs   afero.Fs
	root string

	mu       sync.RWMutex
	channels []string
	index    map[string]struct{}

	locks store.ChannelLocks
}

// New opens (or initializes) a file store rooted at root on fs.
func New(fs afero.Fs, root string) (*Store, error) {
	if err := fs.MkdirAll(filepath.Join(root, messagesDir), 0o755); err != nil {
		return nil, fmt.Errorf("create messages dir: %w", err)
	}

	s := &Store{
		fs:    fs,
		root:  root,
		index: make(map[string]struct{}),
	}

	data, err := afero.ReadFile(fs, s.registryPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read channel registry: %w", err)
	}

	if err := json.Unmarshal(data, &s.channels); err != nil {
		return nil, fmt.Errorf("decode channel registry: %w", err)
	}
	for _, name := range s.channels {
		s.index[name] = struct{}{}
	}
	return s, nil
}

// NewOS opens a file store on the real filesystem.
func NewOS(root string) (*Store, error) {
	return New(afero.NewOsFs(), root)
}

// CreateChannel creates an empty log file and then records the name in the registry.
func (s *Store) CreateChannel(_ context.Context, name string) error {
	if !validFileName(name) {
		return store.ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[name]; exists {
		return store.ErrChannelExists
	}

	f, err := s.fs.OpenFile(s.logPath(name), os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create log %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close log %s: %w", name, err)
	}

	next := append(append([]string(nil), s.channels...), name)
	if err := s.writeRegistry(next); err != nil {
		return err
	}

	s.channels = next
	s.index[name] = struct{}{}
	return nil
}

// AppendMessage writes one line to the channel log and syncs it before returning.
func (s *Store) AppendMessage(_ context.Context, channel string, msg store.Message) error {
	if !s.exists(channel) {
		return store.ErrChannelNotFound
	}

	line, err := json.Marshal(record{
		ID:        msg.ID,
		User:      msg.Author,
		Text:      msg.Text,
		Channel:   channel,
		Timestamp: msg.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	line = append(line, '\n')

	lock := s.locks.Get(channel)
	lock.Lock()
	defer lock.Unlock()

	f, err := s.fs.OpenFile(s.logPath(channel), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open log %s: %w", channel, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log %s: %w", channel, err)
	}
	size := info.Size()

	if _, err := f.Write(line); err != nil {
		return rollback(f, size, fmt.Errorf("write log %s: %w", channel, err))
	}
	if err := f.Sync(); err != nil {
		return rollback(f, size, fmt.Errorf("sync log %s: %w", channel, err))
	}
	return f.Close()
}

// rollback cuts the log back to size so a failed append leaves no trace.
func rollback(f afero.File, size int64, cause error) error {
	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		return errors.Join(cause, fmt.Errorf("truncate log: %w", err))
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Join(cause, fmt.Errorf("sync truncated log: %w", err))
	}
	_ = f.Close()
	return cause
}

// ReadLog decodes the full channel log.
func (s *Store) ReadLog(_ context.Context, channel string) ([]store.Message, error) {
	if !s.exists(channel) {
		return nil, store.ErrChannelNotFound
	}

	lock := s.locks.Get(channel)
	lock.Lock()
	data, err := afero.ReadFile(s.fs, s.logPath(channel))
	lock.Unlock()
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", channel, err)
	}

	messages := make([]store.Message, 0)
	reader := bufio.NewReader(bytes.NewReader(data))
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var rec record
			if decErr := json.Unmarshal(line, &rec); decErr != nil {
				return nil, fmt.Errorf("decode log %s: %w", channel, decErr)
			}
			messages = append(messages, store.Message{
				ID:        rec.ID,
				Channel:   channel,
				Author:    rec.User,
				Text:      rec.Text,
				CreatedAt: time.UnixMilli(rec.Timestamp).UTC(),
			})
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan log %s: %w", channel, err)
		}
	}
	return messages, nil
}

// ListChannels returns the registry in creation order.
func (s *Store) ListChannels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.channels))
	copy(out, s.channels)
	return out, nil
}

// Close is a no-op; every write is already synced.
func (s *Store) Close() error {
	return nil
}

func (s *Store) exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[name]
	return ok
}

// writeRegistry replaces channels.json through a temp file and rename.
func (s *Store) writeRegistry(channels []string) error {
	data, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("encode channel registry: %w", err)
	}

	tmp := s.registryPath() + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write channel registry: %w", err)
	}
	if err := s.fs.Rename(tmp, s.registryPath()); err != nil {
		return fmt.Errorf("replace channel registry: %w", err)
	}
	return nil
}

func (s *Store) registryPath() string {
	return filepath.Join(s.root, registryFile)
}

func (s *Store) logPath(name string) string {
	return filepath.Join(s.root, messagesDir, name+logSuffix)
}

// validFileName keeps channel names from escaping the messages directory.
func validFileName(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}
