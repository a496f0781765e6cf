package service

import (
	"context"
	"fmt"
	"log/slog"

	"go-blog-api/internal/cache"
	"go-blog-api/internal/model"
	"go-blog-api/internal/repository"
	"go-blog-api/pkg/apierror"
)

const recentPostsLimit = 5

type UserPage struct {
	Users []model.UserSummary `json:"users"`
	Total int                 `json:"total"`
}

type AdminService struct {
	users    repository.UserStore
	posts    repository.PostStore
	comments repository.CommentStore
	tx       repository.Transactor
	accounts *AuthService
	caches   Caches
}

func NewAdminService(users repository.UserStore, posts repository.PostStore, comments repository.CommentStore, tx repository.Transactor, accounts *AuthService, caches Caches) *AdminService {
	return &AdminService{
		users:    users,
		posts:    posts,
		comments: comments,
		tx:       tx,
		accounts: accounts,
		caches:   caches,
	}
}

func (s *AdminService) ListUsers(ctx context.Context, page model.Page, bypass bool) (UserPage, error) {
	page = page.Normalize()
	key := s.caches.Users.Scope("all", fmt.Sprintf("%d:%d", page.Page, page.Limit))

	return cache.Fetch(ctx, s.caches.Users, key, bypass, func(ctx context.Context) (UserPage, error) {
		users, total, err := s.users.List(ctx, page)
		if err != nil {
			return UserPage{}, err
		}
		return UserPage{Users: users, Total: total}, nil
	})
}

func (s *AdminService) GetUser(ctx context.Context, id string, bypass bool) (model.AuthUser, error) {
	return cache.Fetch(ctx, s.caches.Users, s.caches.Users.ID(id), bypass, func(ctx context.Context) (model.AuthUser, error) {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return model.AuthUser{}, err
		}
		return user.Public(), nil
	})
}

// CreateUser adds an account on behalf of an admin. No session is started for it.
func (s *AdminService) CreateUser(ctx context.Context, req model.CreateUserRequest) (model.AuthUser, error) {
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	user, err := s.accounts.createUser(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		return model.AuthUser{}, err
	}
	return user.Public(), nil
}

func (s *AdminService) MakeAdmin(ctx context.Context, actor *model.AuthUser, id string) (model.AuthUser, error) {
	return s.setRole(ctx, actor, id, model.RoleAdmin)
}

// RevokeAdmin demotes an admin to USER. Admins cannot demote themselves, which
// also guarantees at least one admin remains.
func (s *AdminService) RevokeAdmin(ctx context.Context, actor *model.AuthUser, id string) (model.AuthUser, error) {
	if actor != nil && actor.ID == id {
		return model.AuthUser{}, apierror.BadRequest("cannot revoke your own admin role", "")
	}
	return s.setRole(ctx, actor, id, model.RoleUser)
}

func (s *AdminService) setRole(ctx context.Context, actor *model.AuthUser, id string, role model.Role) (model.AuthUser, error) {
	if actor == nil {
		return model.AuthUser{}, apierror.Unauthorized("authentication required")
	}

	user, err := s.users.UpdateRole(ctx, id, role)
	if err != nil {
		return model.AuthUser{}, err
	}

	s.caches.Users.InvalidateAll()
	s.caches.Stats.Invalidate(statsDashboardKey)
	return user.Public(), nil
}

// DeleteUser removes a user together with their posts, the comments on those
// posts and the comments they wrote elsewhere. Everything happens in one
// transaction; a failure leaves nothing deleted.
func (s *AdminService) DeleteUser(ctx context.Context, actor *model.AuthUser, id string) (model.AuthUser, error) {
	if actor == nil {
		return model.AuthUser{}, apierror.Unauthorized("authentication required")
	}
	if actor.ID == id {
		return model.AuthUser{}, apierror.BadRequest("cannot delete your own account", "")
	}

	var deleted model.User
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return err
		}
		deleted = user

		if _, err := s.comments.DeleteByPostAuthor(ctx, id); err != nil {
			return err
		}
		if _, err := s.comments.DeleteByUser(ctx, id); err != nil {
			return err
		}
		removed, err := s.posts.DeleteByAuthor(ctx, id)
		if err != nil {
			return err
		}
		slog.Debug("cascade delete", "user_id", id, "posts", removed)
		return s.users.Delete(ctx, id)
	})
	if err != nil {
		return model.AuthUser{}, err
	}

	s.caches.Users.InvalidateAll()
	s.caches.Posts.InvalidateAll()
	s.caches.Comments.InvalidateAll()
	s.caches.Stats.Invalidate(statsDashboardKey)
	return deleted.Public(), nil
}

func (s *AdminService) DashboardStats(ctx context.Context, bypass bool) (model.DashboardStats, error) {
	return cache.Fetch(ctx, s.caches.Stats, statsDashboardKey, bypass, s.loadStats)
}

func (s *AdminService) loadStats(ctx context.Context) (model.DashboardStats, error) {
	roles, err := s.users.CountByRole(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	total, published, err := s.posts.Counts(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	comments, err := s.comments.Count(ctx)
	if err != nil {
		return model.DashboardStats{}, err
	}
	recent, err := s.posts.Recent(ctx, recentPostsLimit)
	if err != nil {
		return model.DashboardStats{}, err
	}

	return model.DashboardStats{
		Users:          roles[model.RoleUser] + roles[model.RoleAdmin],
		Admins:         roles[model.RoleAdmin],
		Posts:          total,
		PublishedPosts: published,
		Comments:       comments,
		RecentPosts:    recent,
	}, nil
}
