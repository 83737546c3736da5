// Package cache provides the two memoization shapes the gateway needs:
// a single-flight TTL memo for the blockchain-tip lookup (where a cache
// miss must also collapse concurrent in-flight fetches), and a thin
// wrapper over go-cache for the fee and BlockChair transaction memos
// (where plain TTL eviction is enough).
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type entry struct {
	value   any
	expires time.Time
}

// Memo collapses concurrent fetches for the same key into one upstream
// call and caches the result for ttl. It is the single-flight cache
// wrapper called for in place of ad hoc memoizing decorators: a lookup
// within the TTL window shares both the cached value and any fetch
// already in flight.
type Memo struct {
	ttl   time.Duration
	cap   int
	mu    sync.Mutex
	items map[string]entry
	order []string // insertion order, for capacity eviction
	group singleflight.Group
}

// NewMemo builds a Memo with the given TTL and capacity. Capacity is
// enforced by evicting the oldest entry once the map would exceed it.
func NewMemo(ttl time.Duration, capacity int) *Memo {
	return &Memo{
		ttl:   ttl,
		cap:   capacity,
		items: make(map[string]entry),
	}
}

// Get returns the cached value for key if fresh, or invokes fetch,
// sharing the in-flight call across concurrent callers with the same key.
func (m *Memo) Get(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := m.lookup(key); ok {
		return v, nil
	}
	v, err, _ := m.group.Do(key, func() (any, error) {
		if v, ok := m.lookup(key); ok {
			return v, nil
		}
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		m.store(key, v)
		return v, nil
	})
	return v, err
}

func (m *Memo) lookup(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.value, true
}

func (m *Memo) store(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[key]; !exists {
		if m.cap > 0 && len(m.order) >= m.cap {
			oldest := m.order[0]
			m.order = m.order[1:]
			delete(m.items, oldest)
		}
		m.order = append(m.order, key)
	}
	m.items[key] = entry{value: value, expires: time.Now().Add(m.ttl)}
}
