package memory

import (
	"context"
	"sort"
	"time"

	"go-blog-api/internal/model"
)

type userRecord = model.User

type UserRepository struct {
	s *Store
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	defer r.s.lock(ctx)()

	rec, ok := r.s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return cloneUser(rec.value), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	defer r.s.lock(ctx)()

	for _, rec := range r.s.users {
		if rec.value.Email == email {
			return cloneUser(rec.value), nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	defer r.s.lock(ctx)()

	for _, rec := range r.s.users {
		if rec.value.Email == u.Email {
			return model.ErrEmailTaken
		}
	}
	if _, exists := r.s.users[u.ID]; exists {
		return model.ErrEmailTaken
	}
	r.s.users[u.ID] = row[userRecord]{value: cloneUser(u), seq: r.s.nextSeq()}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	defer r.s.lock(ctx)()

	rec, ok := r.s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	rec.value.Role = role
	rec.value.UpdatedAt = time.Now().UTC()
	r.s.users[id] = rec
	return cloneUser(rec.value), nil
}

func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, userID string, hash *string) error {
	defer r.s.lock(ctx)()

	rec, ok := r.s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	rec.value.RefreshTokenHash = copyString(hash)
	rec.value.UpdatedAt = time.Now().UTC()
	r.s.users[userID] = rec
	return nil
}

func (r *UserRepository) SwapRefreshTokenHash(ctx context.Context, userID string, oldHash string, newHash string) (bool, error) {
	defer r.s.lock(ctx)()

	rec, ok := r.s.users[userID]
	if !ok || rec.value.RefreshTokenHash == nil || *rec.value.RefreshTokenHash != oldHash {
		return false, nil
	}
	rec.value.RefreshTokenHash = &newHash
	rec.value.UpdatedAt = time.Now().UTC()
	r.s.users[userID] = rec
	return true, nil
}

func (r *UserRepository) List(ctx context.Context, page model.Page) ([]model.UserSummary, int, error) {
	defer r.s.lock(ctx)()
	page = page.Normalize()

	postCounts := make(map[string]int)
	for _, rec := range r.s.posts {
		postCounts[rec.value.AuthorID]++
	}

	rows := make([]row[userRecord], 0, len(r.s.users))
	for _, rec := range r.s.users {
		rows = append(rows, rec)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].value.CreatedAt.Equal(rows[j].value.CreatedAt) {
			return rows[i].value.CreatedAt.Before(rows[j].value.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]model.UserSummary, 0, page.Limit)
	for _, rec := range paginate(rows, page) {
		out = append(out, model.UserSummary{
			AuthUser:  rec.value.Public(),
			PostCount: postCounts[rec.value.ID],
			CreatedAt: rec.value.CreatedAt,
		})
	}
	return out, len(rows), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.users[id]; !ok {
		return model.ErrUserNotFound
	}
	for _, rec := range r.s.posts {
		if rec.value.AuthorID == id {
			return errForeignKey("posts.author_id")
		}
	}
	for _, rec := range r.s.comments {
		if rec.value.UserID != nil && *rec.value.UserID == id {
			return errForeignKey("comments.user_id")
		}
	}
	delete(r.s.users, id)
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	defer r.s.lock(ctx)()

	counts := map[model.Role]int{model.RoleUser: 0, model.RoleAdmin: 0}
	for _, rec := range r.s.users {
		counts[rec.value.Role]++
	}
	return counts, nil
}

func cloneUser(u model.User) model.User {
	u.RefreshTokenHash = copyString(u.RefreshTokenHash)
	return u
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func paginate[T any](items []T, page model.Page) []T {
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
