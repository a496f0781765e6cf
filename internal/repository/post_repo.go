package repository

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"go-blog-api/internal/database"
	"go-blog-api/internal/model"
)

const postSelect = `SELECT p.id, p.title, p.content, p.published, p.author_id, p.created_at, p.updated_at,
       u.id AS "author.id", u.name AS "author.name"
FROM posts p
JOIN users u ON u.id = p.author_id`

type PostRepository struct {
	db *database.DB
}

func NewPostRepository(db *database.DB) *PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) ListPublished(ctx context.Context) ([]model.Post, error) {
	posts := make([]model.Post, 0)
	if err := pgxscan.Select(ctx, r.db.Querier(ctx), &posts,
		postSelect+` WHERE p.published ORDER BY p.created_at DESC, p.id`); err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error) {
	posts := make([]model.Post, 0)
	if err := pgxscan.Select(ctx, r.db.Querier(ctx), &posts,
		postSelect+` WHERE p.author_id = $1 ORDER BY p.created_at DESC, p.id`, authorID); err != nil {
		return nil, fmt.Errorf("list posts by author: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (model.Post, error) {
	var p model.Post
	err := pgxscan.Get(ctx, r.db.Querier(ctx), &p, postSelect+` WHERE p.id = $1`, id)
	if pgxscan.NotFound(err) {
		return model.Post{}, model.ErrPostNotFound
	}
	if err != nil {
		return model.Post{}, fmt.Errorf("find post: %w", err)
	}
	return p, nil
}

func (r *PostRepository) Create(ctx context.Context, p model.Post) error {
	_, err := r.db.Querier(ctx).Exec(ctx,
		`INSERT INTO posts (id, title, content, published, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Title, p.Content, p.Published, p.AuthorID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

func (r *PostRepository) Update(ctx context.Context, p model.Post) error {
	tag, err := r.db.Querier(ctx).Exec(ctx,
		`UPDATE posts SET title = $2, content = $3, published = $4, updated_at = $5 WHERE id = $1`,
		p.ID, p.Title, p.Content, p.Published, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) DeleteByAuthor(ctx context.Context, authorID string) (int64, error) {
	tag, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM posts WHERE author_id = $1`, authorID)
	if err != nil {
		return 0, fmt.Errorf("delete posts by author: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostRepository) Counts(ctx context.Context) (int, int, error) {
	var total, published int
	err := r.db.Querier(ctx).QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE published) FROM posts`).Scan(&total, &published)
	if err != nil {
		return 0, 0, fmt.Errorf("count posts: %w", err)
	}
	return total, published, nil
}

func (r *PostRepository) Recent(ctx context.Context, limit int) ([]model.Post, error) {
	posts := make([]model.Post, 0)
	if err := pgxscan.Select(ctx, r.db.Querier(ctx), &posts,
		postSelect+` ORDER BY p.created_at DESC, p.id LIMIT $1`, limit); err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}
	return posts, nil
}
