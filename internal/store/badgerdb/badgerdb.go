package badgerdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/vovakirdan/wirechat-channels/internal/store"
)

// Key layout:
//
//	chan:<name>                  -> creation sequence (uint64 BE)
//	order:<%020d seq>            -> name
//	seq:<len>:<name>             -> last message sequence (uint64 BE)
//	msg:<len>:<name>:<%020d seq> -> JSON diskMessage
//
// Names are length-prefixed in message keys so that one channel's prefix can
// never match another channel's keys.
const (
	channelCounterKey = "meta:channels"
)

type diskMessage struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
	At     int64  `json:"at"`
}

// Store persists channel logs in BadgerDB.
type Store struct {
	db       *badger.DB
	createMu sync.Mutex
	locks    store.ChannelLocks
}

// Open opens a badger database at path. An empty path keeps everything in memory.
func Open(path string) (*Store, error) {
	db, err := badger.Open(options(path))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// options syncs every commit on disk so a successful append survives a crash.
func options(path string) badger.Options {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		return opts.WithInMemory(true)
	}
	return opts.WithSyncWrites(true)
}

// CreateChannel registers the channel and its position in the creation order.
func (s *Store) CreateChannel(_ context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return store.ErrInvalidName
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(channelKey(name))
		if err == nil {
			return store.ErrChannelExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("lookup channel: %w", err)
		}

		seq, err := nextSeq(txn, []byte(channelCounterKey))
		if err != nil {
			return err
		}
		if err := txn.Set(channelKey(name), encodeSeq(seq)); err != nil {
			return fmt.Errorf("set channel: %w", err)
		}
		if err := txn.Set(orderKey(seq), []byte(name)); err != nil {
			return fmt.Errorf("set channel order: %w", err)
		}
		return nil
	})
}

// AppendMessage stores msg under the next per-channel sequence number.
func (s *Store) AppendMessage(_ context.Context, channel string, msg store.Message) error {
	value, err := json.Marshal(diskMessage{
		ID:     msg.ID,
		Author: msg.Author,
		Text:   msg.Text,
		At:     msg.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	lock := s.locks.Get(channel)
	lock.Lock()
	defer lock.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		if err := requireChannel(txn, channel); err != nil {
			return err
		}
		seq, err := nextSeq(txn, seqKey(channel))
		if err != nil {
			return err
		}
		if err := txn.Set(messageKey(channel, seq), value); err != nil {
			return fmt.Errorf("set message: %w", err)
		}
		return nil
	})
}

// ReadLog scans the channel's message prefix in key (= append) order.
func (s *Store) ReadLog(_ context.Context, channel string) ([]store.Message, error) {
	messages := make([]store.Message, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		if err := requireChannel(txn, channel); err != nil {
			return err
		}

		prefix := messagePrefix(channel)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var dm diskMessage
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &dm)
			})
			if err != nil {
				return fmt.Errorf("decode message: %w", err)
			}
			messages = append(messages, store.Message{
				ID:        dm.ID,
				Channel:   channel,
				Author:    dm.Author,
				Text:      dm.Text,
				CreatedAt: time.Unix(0, dm.At).UTC(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// ListChannels walks the order index.
func (s *Store) ListChannels(_ context.Context) ([]string, error) {
	names := make([]string, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte("order:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read channel order: %w", err)
			}
			names = append(names, string(value))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func requireChannel(txn *badger.Txn, name string) error {
	_, err := txn.Get(channelKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return store.ErrChannelNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup channel: %w", err)
	}
	return nil
}

func nextSeq(txn *badger.Txn, key []byte) (uint64, error) {
	var current uint64
	item, err := txn.Get(key)
	switch {
	case err == nil:
		value, err := item.ValueCopy(nil)
		if err != nil {
			return 0, fmt.Errorf("read sequence: %w", err)
		}
		current = binary.BigEndian.Uint64(value)
	case !errors.Is(err, badger.ErrKeyNotFound):
		return 0, fmt.Errorf("lookup sequence: %w", err)
	}

	next := current + 1
	if err := txn.Set(key, encodeSeq(next)); err != nil {
		return 0, fmt.Errorf("set sequence: %w", err)
	}
	return next, nil
}

func encodeSeq(seq uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return buf
}

func channelKey(name string) []byte {
	return []byte("chan:" + name)
}

func orderKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("order:%020d", seq))
}

func seqKey(name string) []byte {
	return []byte(fmt.Sprintf("seq:%d:%s", len(name), name))
}

func messagePrefix(name string) []byte {
	return []byte(fmt.Sprintf("msg:%d:%s:", len(name), name))
}

func messageKey(name string, seq uint64) []byte {
	return []byte(fmt.Sprintf("msg:%d:%s:%020d", len(name), name, seq))
}
