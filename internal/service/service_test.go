package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-blog-api/internal/auth"
	"go-blog-api/internal/cache"
	"go-blog-api/internal/model"
	"go-blog-api/internal/repository/memory"
	"go-blog-api/pkg/apierror"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	store    *memory.Store
	cache    *cache.Memory
	caches   Caches
	tokens   *auth.TokenService
	auth     *AuthService
	posts    *PostService
	comments *CommentService
	admin    *AdminService
	audit    *AuditService
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{store: memory.New(), now: time.Now().UTC()}

	var err error
	env.cache, err = cache.NewMemory(1000, nil)
	require.NoError(t, err)
	env.caches = NewCaches(env.cache, CacheTTLs{
		Posts:    2 * time.Minute,
		Comments: 2 * time.Minute,
		Users:    5 * time.Minute,
		Stats:    time.Minute,
	})

	env.tokens, err = auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte(testSecret),
		RefreshSecret: []byte(testSecret + "-refresh"),
		Now:           func() time.Time { return env.now },
	}, env.store.Users())
	require.NoError(t, err)

	hasher := auth.NewHasher(bcrypt.MinCost)
	env.auth = NewAuthService(env.store.Users(), env.tokens, hasher, env.caches)
	env.posts = NewPostService(env.store.Posts(), env.store.Comments(), env.store, env.caches)
	env.comments = NewCommentService(env.store.Comments(), env.posts, env.caches)
	env.admin = NewAdminService(env.store.Users(), env.store.Posts(), env.store.Comments(), env.store, env.auth, env.caches)
	env.audit = NewAuditService(env.store.Audit())
	return env
}

func (e *testEnv) register(t *testing.T, name string, email string) model.AuthResult {
	t.Helper()
	result, err := e.auth.Register(context.Background(), model.RegisterRequest{Name: name, Email: email, Password: "password123"})
	require.NoError(t, err)
	return result
}

func (e *testEnv) registerAdmin(t *testing.T, name string, email string) model.AuthUser {
	t.Helper()
	admin, _, err := e.auth.EnsureAdmin(context.Background(), name, email, "password123")
	require.NoError(t, err)
	return admin
}

func (e *testEnv) createPost(t *testing.T, author model.AuthUser, title string, published bool) model.Post {
	t.Helper()
	post, err := e.posts.Create(context.Background(), &author, model.PostRequest{Title: title, Content: "body of " + title, Published: &published})
	require.NoError(t, err)
	return post
}

func requireAPIStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *apierror.APIError
	require.True(t, errors.As(err, &apiErr), "expected API error, got %v", err)
	require.Equal(t, status, apiErr.HTTPStatus, apiErr.Error())
}
