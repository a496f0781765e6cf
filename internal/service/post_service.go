package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-blog-api/internal/auth"
	"go-blog-api/internal/cache"
	"go-blog-api/internal/model"
	"go-blog-api/internal/repository"
	"go-blog-api/pkg/apierror"
)

type PostService struct {
	posts    repository.PostStore
	comments repository.CommentStore
	tx       repository.Transactor
	caches   Caches
	now      func() time.Time
}

func NewPostService(posts repository.PostStore, comments repository.CommentStore, tx repository.Transactor, caches Caches) *PostService {
	return &PostService{
		posts:    posts,
		comments: comments,
		tx:       tx,
		caches:   caches,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns every published post, newest first.
func (s *PostService) List(ctx context.Context, bypass bool) ([]model.Post, error) {
	return cache.Fetch(ctx, s.caches.Posts, s.caches.Posts.All(), bypass, s.posts.ListPublished)
}

// Get returns a post. Drafts are only visible to their author and admins;
// everybody else gets NotFound.
func (s *PostService) Get(ctx context.Context, id string, viewer *model.AuthUser, bypass bool) (model.Post, error) {
	post, err := cache.Fetch(ctx, s.caches.Posts, s.caches.Posts.ID(id), bypass, func(ctx context.Context) (model.Post, error) {
		return s.posts.FindByID(ctx, id)
	})
	if err != nil {
		return model.Post{}, err
	}
	if !post.Published && !auth.RequireOwnerOrRole(viewer, post.AuthorID, model.RoleAdmin).Allowed {
		return model.Post{}, model.ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) ListByAuthor(ctx context.Context, authorID string, viewer *model.AuthUser, bypass bool) ([]model.Post, error) {
	posts, err := cache.Fetch(ctx, s.caches.Posts, s.caches.Posts.Owner(authorID), bypass, func(ctx context.Context) ([]model.Post, error) {
		return s.posts.ListByAuthor(ctx, authorID)
	})
	if err != nil {
		return nil, err
	}
	if auth.RequireOwnerOrRole(viewer, authorID, model.RoleAdmin).Allowed {
		return posts, nil
	}

	visible := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if p.Published {
			visible = append(visible, p)
		}
	}
	return visible, nil
}

func (s *PostService) Create(ctx context.Context, principal *model.AuthUser, req model.PostRequest) (model.Post, error) {
	if principal == nil {
		return model.Post{}, apierror.Unauthorized("authentication required")
	}
	if err := validatePost(req.Title, req.Content); err != nil {
		return model.Post{}, err
	}

	now := s.now()
	post := model.Post{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Published: req.Published == nil || *req.Published,
		AuthorID:  principal.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return model.Post{}, err
	}

	s.caches.Posts.Invalidate(s.caches.Posts.All(), s.caches.Posts.Owner(post.AuthorID))
	s.caches.Stats.Invalidate(statsDashboardKey)

	post.Author = model.PostAuthor{ID: principal.ID, Name: principal.Name}
	return post, nil
}

func (s *PostService) Update(ctx context.Context, principal *model.AuthUser, id string, req model.PostRequest) (model.Post, error) {
	post, err := s.loadOwned(ctx, principal, id)
	if err != nil {
		return model.Post{}, err
	}
	if err := validatePost(req.Title, req.Content); err != nil {
		return model.Post{}, err
	}

	wasPublished := post.Published
	post.Title = strings.TrimSpace(req.Title)
	post.Content = req.Content
	if req.Published != nil {
		post.Published = *req.Published
	}
	post.UpdatedAt = s.now()

	if err := s.posts.Update(ctx, post); err != nil {
		return model.Post{}, err
	}

	s.caches.Posts.Invalidate(s.caches.Posts.All(), s.caches.Posts.ID(id), s.caches.Posts.Owner(post.AuthorID))
	if wasPublished != post.Published {
		s.caches.Stats.Invalidate(statsDashboardKey)
	}
	return post, nil
}

// Delete removes a post and its comments in one transaction.
func (s *PostService) Delete(ctx context.Context, principal *model.AuthUser, id string) (model.Post, error) {
	post, err := s.loadOwned(ctx, principal, id)
	if err != nil {
		return model.Post{}, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.comments.DeleteByPost(ctx, id); err != nil {
			return err
		}
		return s.posts.Delete(ctx, id)
	})
	if err != nil {
		return model.Post{}, err
	}

	s.caches.Posts.Invalidate(s.caches.Posts.All(), s.caches.Posts.ID(id), s.caches.Posts.Owner(post.AuthorID))
	s.caches.Comments.Invalidate(s.caches.Comments.Scope("post", id))
	s.caches.Stats.Invalidate(statsDashboardKey)
	return post, nil
}

// loadOwned reads the post straight from the store so the ownership check
// never runs against a stale cached copy.
func (s *PostService) loadOwned(ctx context.Context, principal *model.AuthUser, id string) (model.Post, error) {
	if principal == nil {
		return model.Post{}, apierror.Unauthorized("authentication required")
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return model.Post{}, err
	}

	if decision := auth.RequireOwnerOrRole(principal, post.AuthorID, model.RoleAdmin); !decision.Allowed {
		if !post.Published {
			return model.Post{}, model.ErrPostNotFound
		}
		return model.Post{}, decision.Err()
	}
	return post, nil
}
