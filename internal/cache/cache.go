package cache

import (
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"go-blog-api/internal/metrics"
)

// Store is a key/value cache for encoded payloads. Implementations must be
// safe for concurrent use.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Invalidate(key string)
	InvalidateMany(keys ...string)
	InvalidatePrefix(prefix string) int
	Sweep() int
	Len() int
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is a bounded in-process Store. Entries expire lazily on Get and are
// dropped for good by Sweep.
type Memory struct {
	entries *lru.Cache[string, entry]
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory(maxEntries int, now func() time.Time) (*Memory, error) {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	if now == nil {
		now = time.Now
	}

	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Memory{entries: entries, now: now}, nil
}

func (m *Memory) Get(key string) ([]byte, bool) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !e.expiresAt.After(m.now()) {
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.entries.Add(key, entry{value: value, expiresAt: m.now().Add(ttl)})
}

func (m *Memory) Invalidate(key string) {
	if m.entries.Remove(key) {
		metrics.CacheEvictions.WithLabelValues("invalidate").Inc()
	}
}

func (m *Memory) InvalidateMany(keys ...string) {
	for _, key := range keys {
		m.Invalidate(key)
	}
}

func (m *Memory) InvalidatePrefix(prefix string) int {
	removed := 0
	for _, key := range m.entries.Keys() {
		if strings.HasPrefix(key, prefix) && m.entries.Remove(key) {
			removed++
		}
	}
	metrics.CacheEvictions.WithLabelValues("invalidate").Add(float64(removed))
	return removed
}

func (m *Memory) Sweep() int {
	now := m.now()
	removed := 0
	for _, key := range m.entries.Keys() {
		e, ok := m.entries.Peek(key)
		if ok && !e.expiresAt.After(now) && m.entries.Remove(key) {
			removed++
		}
	}
	metrics.CacheEvictions.WithLabelValues("expire").Add(float64(removed))
	return removed
}

func (m *Memory) Len() int {
	return m.entries.Len()
}
