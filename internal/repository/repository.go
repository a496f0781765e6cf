package repository

import (
	"context"

	"go-blog-api/internal/model"
)

// Transactor runs fn so that every repository call made with the ctx it
// receives commits or rolls back together.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, u model.User) error
	UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error)
	SetRefreshTokenHash(ctx context.Context, userID string, hash *string) error
	SwapRefreshTokenHash(ctx context.Context, userID string, oldHash string, newHash string) (bool, error)
	List(ctx context.Context, page model.Page) ([]model.UserSummary, int, error)
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context) (map[model.Role]int, error)
}

type PostStore interface {
	ListPublished(ctx context.Context) ([]model.Post, error)
	ListByAuthor(ctx context.Context, authorID string) ([]model.Post, error)
	FindByID(ctx context.Context, id string) (model.Post, error)
	Create(ctx context.Context, p model.Post) error
	Update(ctx context.Context, p model.Post) error
	Delete(ctx context.Context, id string) error
	DeleteByAuthor(ctx context.Context, authorID string) (int64, error)
	Counts(ctx context.Context) (total int, published int, err error)
	Recent(ctx context.Context, limit int) ([]model.Post, error)
}

type CommentStore interface {
	ListByPost(ctx context.Context, postID string) ([]model.Comment, error)
	FindByID(ctx context.Context, id string) (model.Comment, error)
	Create(ctx context.Context, c model.Comment) error
	Delete(ctx context.Context, id string) error
	DeleteByPost(ctx context.Context, postID string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	DeleteByPostAuthor(ctx context.Context, authorID string) (int64, error)
	Count(ctx context.Context) (int, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry model.AuditEntry) error
	Query(ctx context.Context, query model.AuditQuery) ([]model.AuditEntry, model.Meta, error)
}
