package store

import "sync"

// ChannelLocks hands out one mutex per channel name. Channels are never
// deleted, so entries live as long as the process. The zero value is ready to use.
type ChannelLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Get returns the mutex guarding the named channel.
func (l *ChannelLocks) Get(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	return m
}
