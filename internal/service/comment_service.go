package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"go-blog-api/internal/auth"
	"go-blog-api/internal/cache"
	"go-blog-api/internal/model"
	"go-blog-api/internal/repository"
	"go-blog-api/pkg/apierror"
)

type CommentService struct {
	comments repository.CommentStore
	posts    *PostService
	caches   Caches
	now      func() time.Time
}

func NewCommentService(comments repository.CommentStore, posts *PostService, caches Caches) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		caches:   caches,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *CommentService) ListByPost(ctx context.Context, postID string, viewer *model.AuthUser, bypass bool) ([]model.Comment, error) {
	if _, err := s.posts.Get(ctx, postID, viewer, bypass); err != nil {
		return nil, err
	}

	return cache.Fetch(ctx, s.caches.Comments, s.caches.Comments.Scope("post", postID), bypass, func(ctx context.Context) ([]model.Comment, error) {
		return s.comments.ListByPost(ctx, postID)
	})
}

// Create adds a comment. A signed-in author's name is filled from the
// account; guests must supply one.
func (s *CommentService) Create(ctx context.Context, author *model.AuthUser, postID string, req model.CommentRequest) (model.Comment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return model.Comment{}, apierror.BadRequest("content is required", "")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return model.Comment{}, apierror.BadRequest("content is too long", "")
	}

	if _, err := s.posts.Get(ctx, postID, author, false); err != nil {
		return model.Comment{}, err
	}

	comment := model.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		Content:   content,
		CreatedAt: s.now(),
	}

	if author != nil {
		id := author.ID
		comment.UserID = &id
		comment.AuthorName = displayName(*author)
	} else {
		name := strings.TrimSpace(req.Name)
		if name == "" {
			return model.Comment{}, apierror.BadRequest("name is required for guest comments", "")
		}
		if err := validateName(name); err != nil {
			return model.Comment{}, err
		}
		comment.AuthorName = name
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return model.Comment{}, err
	}

	s.caches.Comments.Invalidate(s.caches.Comments.Scope("post", postID))
	s.caches.Stats.Invalidate(statsDashboardKey)
	return comment, nil
}

// Delete removes a comment. Guest comments have no owner, so only admins can
// remove them.
func (s *CommentService) Delete(ctx context.Context, principal *model.AuthUser, id string) (model.Comment, error) {
	if principal == nil {
		return model.Comment{}, apierror.Unauthorized("authentication required")
	}

	comment, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return model.Comment{}, err
	}
	if err := auth.RequireOwnerOrRole(principal, comment.OwnerID(), model.RoleAdmin).Err(); err != nil {
		return model.Comment{}, err
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return model.Comment{}, err
	}

	s.caches.Comments.Invalidate(s.caches.Comments.Scope("post", comment.PostID))
	s.caches.Stats.Invalidate(statsDashboardKey)
	return comment, nil
}

func displayName(u model.AuthUser) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if at := strings.IndexByte(u.Email, '@'); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}
