package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"go-blog-api/internal/database"
	"go-blog-api/internal/model"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, password_hash, role, refresh_token_hash, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := pgxscan.Get(ctx, r.db.Querier(ctx), &u,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if pgxscan.NotFound(err) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := pgxscan.Get(ctx, r.db.Querier(ctx), &u,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if pgxscan.NotFound(err) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.db.Querier(ctx).Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, role, refresh_token_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.RefreshTokenHash, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return model.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	var u model.User
	err := pgxscan.Get(ctx, r.db.Querier(ctx), &u,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1 RETURNING `+userColumns, id, role)
	if pgxscan.NotFound(err) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("update user role: %w", err)
	}
	return u, nil
}

func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, userID string, hash *string) error {
	tag, err := r.db.Querier(ctx).Exec(ctx,
		`UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`, userID, hash)
	if err != nil {
		return fmt.Errorf("set refresh token hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

// SwapRefreshTokenHash replaces the stored hash only while it still equals oldHash.
func (r *UserRepository) SwapRefreshTokenHash(ctx context.Context, userID string, oldHash string, newHash string) (bool, error) {
	tag, err := r.db.Querier(ctx).Exec(ctx,
		`UPDATE users SET refresh_token_hash = $3, updated_at = now()
		 WHERE id = $1 AND refresh_token_hash = $2`, userID, oldHash, newHash)
	if err != nil {
		return false, fmt.Errorf("swap refresh token hash: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) List(ctx context.Context, page model.Page) ([]model.UserSummary, int, error) {
	page = page.Normalize()
	q := r.db.Querier(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	users := make([]model.UserSummary, 0)
	err := pgxscan.Select(ctx, q, &users,
		`SELECT u.id, u.email, u.name, u.role, u.created_at, COUNT(p.id) AS post_count
		 FROM users u
		 LEFT JOIN posts p ON p.author_id = u.id
		 GROUP BY u.id
		 ORDER BY u.created_at ASC, u.id ASC
		 LIMIT $1 OFFSET $2`, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Querier(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	var rows []struct {
		Role  model.Role `db:"role"`
		Count int        `db:"count"`
	}
	if err := pgxscan.Select(ctx, r.db.Querier(ctx), &rows,
		`SELECT role, COUNT(*) AS count FROM users GROUP BY role`); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}

	counts := map[model.Role]int{model.RoleUser: 0, model.RoleAdmin: 0}
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
