// Package lock provides per-key mutual exclusion for payment workflow
// operations. The in-process KeyedMutex covers single-instance deployments;
// RedisLocker extends the same contract across instances.
package lock

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/treasury/backend/internal/domain/payment"
)

const shardCount = 64

type lockEntry struct {
	sem  chan struct{} // holds one token when the lock is free
	refs int
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// KeyedMutex serializes callers per key with a bounded wait. Different keys
// never contend with each other beyond the brief shard map access.
type KeyedMutex struct {
	shards [shardCount]shard
}

// NewKeyedMutex creates a new in-process keyed mutex
func NewKeyedMutex() *KeyedMutex {
	m := &KeyedMutex{}
	for i := range m.shards {
		m.shards[i].entries = make(map[string]*lockEntry)
	}
	return m
}

func (m *KeyedMutex) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &m.shards[h.Sum32()%shardCount]
}

// Acquire blocks until the lock for key is held, the timeout elapses, or ctx
// is cancelled. On timeout it returns a *payment.LockTimeoutError. The
// returned release function must be called exactly once.
func (m *KeyedMutex) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	s := m.shardFor(key)

	s.mu.Lock()
	entry, ok := s.entries[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		entry.sem <- struct{}{}
		s.entries[key] = entry
	}
	entry.refs++
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-entry.sem:
		release := func() {
			entry.sem <- struct{}{}
			m.unref(s, key, entry)
		}
		return release, nil
	case <-timer.C:
		m.unref(s, key, entry)
		return nil, &payment.LockTimeoutError{Key: key, Timeout: timeout}
	case <-ctx.Done():
		m.unref(s, key, entry)
		return nil, ctx.Err()
	}
}

// unref drops one interest in the key and removes the entry once nobody
// holds or waits for it, keeping the map from growing with dead keys.
func (m *KeyedMutex) unref(s *shard, key string, entry *lockEntry) {
	s.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(s.entries, key)
	}
	s.mu.Unlock()
}
