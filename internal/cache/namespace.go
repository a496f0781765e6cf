package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"go-blog-api/internal/metrics"
)

// Namespace scopes keys and TTL to one resource collection, e.g. "posts".
// Keys look like posts:all, posts:id:<id>, posts:owner:<ownerId>.
type Namespace struct {
	store Store
	name  string
	ttl   time.Duration
	group singleflight.Group
}

func NewNamespace(store Store, name string, ttl time.Duration) *Namespace {
	return &Namespace{store: store, name: name, ttl: ttl}
}

func (n *Namespace) Name() string       { return n.name }
func (n *Namespace) TTL() time.Duration { return n.ttl }

func (n *Namespace) All() string {
	return n.name + ":all"
}

func (n *Namespace) ID(id string) string {
	return n.Scope("id", id)
}

func (n *Namespace) Owner(ownerID string) string {
	return n.Scope("owner", ownerID)
}

func (n *Namespace) Scope(scope string, id string) string {
	return fmt.Sprintf("%s:%s:%s", n.name, scope, id)
}

func (n *Namespace) Invalidate(keys ...string) {
	n.store.InvalidateMany(keys...)
}

// InvalidateAll drops every key of the collection.
func (n *Namespace) InvalidateAll() {
	removed := n.store.InvalidatePrefix(n.name + ":")
	slog.Debug("cache namespace invalidated", "namespace", n.name, "removed", removed)
}

// loadTimeout bounds a shared load once it no longer follows any caller's
// cancellation.
const loadTimeout = 30 * time.Second

// Fetch reads key through the cache. On a miss, or when bypass is set, load
// runs and its JSON encoding is stored for the namespace TTL. Concurrent
// misses for the same key share a single load. The shared load is detached
// from the caller that started it; each caller only waits as long as its own
// ctx allows.
func Fetch[T any](ctx context.Context, n *Namespace, key string, bypass bool, load func(context.Context) (T, error)) (T, error) {
	var out T

	if !bypass {
		if data, ok := n.store.Get(key); ok {
			if err := json.Unmarshal(data, &out); err == nil {
				metrics.CacheLookups.WithLabelValues(n.name, "hit").Inc()
				return out, nil
			}
			n.store.Invalidate(key)
		}
		metrics.CacheLookups.WithLabelValues(n.name, "miss").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues(n.name, "bypass").Inc()
	}

	ch := n.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode cache value %s: %w", key, err)
		}
		n.store.Set(key, encoded, n.ttl)
		return encoded, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return out, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return out, res.Err
	}

	if err := json.Unmarshal(res.Val.([]byte), &out); err != nil {
		return out, fmt.Errorf("decode cache value %s: %w", key, err)
	}
	return out, nil
}

// StartSweeper drops expired entries every interval until ctx is done.
func StartSweeper(ctx context.Context, store Store, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Sweep(); removed > 0 {
				slog.Debug("cache sweep", "removed", removed, "remaining", store.Len())
			}
		}
	}
}
