package repository

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"go-blog-api/internal/database"
	"go-blog-api/internal/model"
)

const commentColumns = `id, post_id, user_id, author_name, content, created_at`

type CommentRepository struct {
	db *database.DB
}

func NewCommentRepository(db *database.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]model.Comment, error) {
	comments := make([]model.Comment, 0)
	if err := pgxscan.Select(ctx, r.db.Querier(ctx), &comments,
		`SELECT `+commentColumns+` FROM comments WHERE post_id = $1 ORDER BY created_at ASC, id`, postID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (r *CommentRepository) FindByID(ctx context.Context, id string) (model.Comment, error) {
	var c model.Comment
	err := pgxscan.Get(ctx, r.db.Querier(ctx), &c,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)
	if pgxscan.NotFound(err) {
		return model.Comment{}, model.ErrCommentNotFound
	}
	if err != nil {
		return model.Comment{}, fmt.Errorf("find comment: %w", err)
	}
	return c, nil
}

func (r *CommentRepository) Create(ctx context.Context, c model.Comment) error {
	_, err := r.db.Querier(ctx).Exec(ctx,
		`INSERT INTO comments (id, post_id, user_id, author_name, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.PostID, c.UserID, c.AuthorName, c.Content, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrCommentNotFound
	}
	return nil
}

func (r *CommentRepository) DeleteByPost(ctx context.Context, postID string) (int64, error) {
	return r.deleteWhere(ctx, `DELETE FROM comments WHERE post_id = $1`, postID)
}

func (r *CommentRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	return r.deleteWhere(ctx, `DELETE FROM comments WHERE user_id = $1`, userID)
}

// DeleteByPostAuthor removes every comment left on posts written by authorID.
func (r *CommentRepository) DeleteByPostAuthor(ctx context.Context, authorID string) (int64, error) {
	return r.deleteWhere(ctx,
		`DELETE FROM comments WHERE post_id IN (SELECT id FROM posts WHERE author_id = $1)`, authorID)
}

func (r *CommentRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.Querier(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM comments`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return total, nil
}

func (r *CommentRepository) deleteWhere(ctx context.Context, sql string, arg string) (int64, error) {
	tag, err := r.db.Querier(ctx).Exec(ctx, sql, arg)
	if err != nil {
		return 0, fmt.Errorf("delete comments: %w", err)
	}
	return tag.RowsAffected(), nil
}
