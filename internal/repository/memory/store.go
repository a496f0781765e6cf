// Package memory is an in-process implementation of the repository
// interfaces. It backs tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"maps"
	"sync"
)

type txKey struct{}

type row[T any] struct {
	value T
	seq   int64
}

type Store struct {
	mu       sync.Mutex
	seq      int64
	users    map[string]row[userRecord]
	posts    map[string]row[postRecord]
	comments map[string]row[commentRecord]
	audit    []auditRecord
}

func New() *Store {
	return &Store{
		users:    make(map[string]row[userRecord]),
		posts:    make(map[string]row[postRecord]),
		comments: make(map[string]row[commentRecord]),
	}
}

func (s *Store) Users() *UserRepository       { return &UserRepository{s: s} }
func (s *Store) Posts() *PostRepository       { return &PostRepository{s: s} }
func (s *Store) Comments() *CommentRepository { return &CommentRepository{s: s} }
func (s *Store) Audit() *AuditRepository      { return &AuditRepository{s: s} }

// WithTx holds the store lock for the whole of fn. If fn fails every map is
// restored to the snapshot taken before it ran.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := maps.Clone(s.users)
	posts := maps.Clone(s.posts)
	comments := maps.Clone(s.comments)
	audit := append([]auditRecord(nil), s.audit...)
	seq := s.seq

	committed := false
	defer func() {
		if !committed {
			s.users, s.posts, s.comments, s.audit, s.seq = users, posts, comments, audit, seq
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock is a no-op inside WithTx, which already holds the mutex.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}
