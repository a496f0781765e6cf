package memory

import (
	"context"
	"fmt"
	"sort"

	"go-blog-api/internal/model"
)

type postRecord = model.Post

type PostRepository struct {
	s *Store
}

func (r *PostRepository) ListPublished(ctx context.Context) ([]model.Post, error) {
	defer r.s.lock(ctx)()
	return r.s.selectPosts(func(p model.Post) bool { return p.Published }, 0), nil
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	defer r.s.lock(ctx)()
	return r.s.selectPosts(func(p model.Post) bool { return p.AuthorID == authorID }, 0), nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (model.Post, error) {
	defer r.s.lock(ctx)()

	rec, ok := r.s.posts[id]
	if !ok {
		return model.Post{}, model.ErrPostNotFound
	}
	return r.s.withAuthor(rec.value), nil
}

func (r *PostRepository) Create(ctx context.Context, p model.Post) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.users[p.AuthorID]; !ok {
		return errForeignKey("posts.author_id")
	}
	p.Author = model.PostAuthor{}
	r.s.posts[p.ID] = row[postRecord]{value: p, seq: r.s.nextSeq()}
	return nil
}

func (r *PostRepository) Update(ctx context.Context, p model.Post) error {
	defer r.s.lock(ctx)()

	rec, ok := r.s.posts[p.ID]
	if !ok {
		return model.ErrPostNotFound
	}
	rec.value.Title = p.Title
	rec.value.Content = p.Content
	rec.value.Published = p.Published
	rec.value.UpdatedAt = p.UpdatedAt
	r.s.posts[p.ID] = rec
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.posts[id]; !ok {
		return model.ErrPostNotFound
	}
	for _, rec := range r.s.comments {
		if rec.value.PostID == id {
			return errForeignKey("comments.post_id")
		}
	}
	delete(r.s.posts, id)
	return nil
}

func (r *PostRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	defer r.s.lock(ctx)()

	doomed := make(map[string]bool)
	for id, rec := range r.s.posts {
		if rec.value.AuthorID == authorID {
			doomed[id] = true
		}
	}
	for _, rec := range r.s.comments {
		if doomed[rec.value.PostID] {
			return 0, errForeignKey("comments.post_id")
		}
	}
	for id := range doomed {
		delete(r.s.posts, id)
	}
	return int64(len(doomed)), nil
}

func (r *PostRepository) Counts(ctx context.Context) (int, int, error) {
	defer r.s.lock(ctx)()

	published := 0
	for _, rec := range r.s.posts {
		if rec.value.Published {
			published++
		}
	}
	return len(r.s.posts), published, nil
}

func (r *PostRepository) Recent(ctx context.Context, limit int) ([]model.Post, error) {
	defer r.s.lock(ctx)()
	return r.s.selectPosts(func(model.Post) bool { return true }, limit), nil
}

// selectPosts returns matching posts newest first. Callers hold the lock.
func (s *Store) selectPosts(match func(model.Post) bool, limit int) []model.Post {
	rows := make([]row[postRecord], 0)
	for _, rec := range s.posts {
		if match(rec.value) {
			rows = append(rows, rec)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].value.CreatedAt.Equal(rows[j].value.CreatedAt) {
			return rows[i].value.CreatedAt.After(rows[j].value.CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	out := make([]model.Post, 0, len(rows))
	for _, rec := range rows {
		out = append(out, s.withAuthor(rec.value))
	}
	return out
}

func (s *Store) withAuthor(p model.Post) model.Post {
	author := s.users[p.AuthorID].value
	p.Author = model.PostAuthor{ID: p.AuthorID, Name: author.Name}
	return p
}

// ForeignKeyError mirrors the constraint failure Postgres raises when a
// referenced row is removed before its dependents.
type ForeignKeyError struct {
	Constraint string
}

func (e *ForeignKeyError) Error() string {
	return fmt.Sprintf("foreign key violation on %s", e.Constraint)
}

func errForeignKey(constraint string) error {
	return &ForeignKeyError{Constraint: constraint}
}
