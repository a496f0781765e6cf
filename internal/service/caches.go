package service

import (
	"time"

	"go-blog-api/internal/cache"
)

// Caches groups the namespaces every service reads through. Mutations in one
// service often invalidate another service's namespace, so they share it.
type Caches struct {
	Posts    *cache.Namespace
	Comments *cache.Namespace
	Users    *cache.Namespace
	Stats    *cache.Namespace
}

type CacheTTLs struct {
	Posts    time.Duration
	Comments time.Duration
	Users    time.Duration
	Stats    time.Duration
}

func NewCaches(store cache.Store, ttl CacheTTLs) Caches {
	return Caches{
		Posts:    cache.NewNamespace(store, "posts", ttl.Posts),
		Comments: cache.NewNamespace(store, "comments", ttl.Comments),
		Users:    cache.NewNamespace(store, "users", ttl.Users),
		Stats:    cache.NewNamespace(store, "stats", ttl.Stats),
	}
}

const statsDashboardKey = "stats:dashboard"
