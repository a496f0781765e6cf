package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-blog-api/internal/app"
	"go-blog-api/internal/config"
	"go-blog-api/internal/model"
	"go-blog-api/internal/repository/memory"
)

const (
	adminEmail    = "root@example.com"
	adminPassword = "rootpassword"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *model.Meta `json:"meta"`
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *config.Config {
	return &config.Config{
		ServerPort:       "0",
		RequestTimeout:   5 * time.Second,
		ShutdownTimeout:  time.Second,
		StoreDriver:      config.StoreDriverMemory,
		JWTSecret:        "test-access-secret-0123456789abcdef",
		JWTRefreshSecret: "test-refresh-secret-0123456789abcdef",
		JWTAccessTTL:     15 * time.Minute,
		JWTRefreshTTL:    7 * 24 * time.Hour,
		BcryptCost:       4,
		CORSOrigins:      []string{"http://localhost:3000"},
		CacheMaxEntries:  1000,
		CacheTTLPosts:    2 * time.Minute,
		CacheTTLComments: 2 * time.Minute,
		CacheTTLUsers:    5 * time.Minute,
		CacheTTLStats:    2 * time.Minute,
		AdminEmail:       adminEmail,
		AdminPassword:    adminPassword,
		AdminName:        "Root",
		LogFormat:        "json",
		LogLevel:         "error",
		MetricsEnabled:   true,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, opts ...app.Option) (*httptest.Server, *testClock) {
	t.Helper()

	clock := &testClock{now: time.Now().UTC()}
	application, err := app.New(context.Background(), cfg, append([]app.Option{app.WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		server.Close()
		application.Close()
	})
	return server, clock
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func call(t *testing.T, client *http.Client, method string, url string, body any, bearer string) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func getRaw(t *testing.T, url string) []byte {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return raw
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type session struct {
	access  string
	refresh string
	user    model.AuthUser
}

func sessionFrom(t *testing.T, resp *http.Response, env envelope) session {
	t.Helper()
	access := cookieNamed(resp, "accessToken")
	refresh := cookieNamed(resp, "refreshToken")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return session{access: access.Value, refresh: refresh.Value, user: decode[model.UserEnvelope](t, env).User}
}

func register(t *testing.T, baseURL string, name string, email string) session {
	t.Helper()
	resp, env := call(t, http.DefaultClient, http.MethodPost, baseURL+"/auth/register", model.RegisterRequest{Name: name, Email: email, Password: "password123"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return sessionFrom(t, resp, env)
}

func login(t *testing.T, baseURL string, email string, password string) session {
	t.Helper()
	resp, env := call(t, http.DefaultClient, http.MethodPost, baseURL+"/auth/login", model.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return sessionFrom(t, resp, env)
}

func refresh(t *testing.T, baseURL string, token string) (*http.Response, envelope) {
	t.Helper()
	return call(t, http.DefaultClient, http.MethodPost, baseURL+"/auth/refresh-token", model.RefreshRequest{RefreshToken: token}, "")
}

func TestAliceScenario(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	browser := newBrowser(t)

	resp, env := call(t, browser, http.MethodPost, server.URL+"/auth/register", model.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "pw123"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)

	access := cookieNamed(resp, "accessToken")
	require.NotNil(t, access)
	assert.True(t, access.HttpOnly)
	assert.Equal(t, 900, access.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	refreshCookie := cookieNamed(resp, "refreshToken")
	require.NotNil(t, refreshCookie)
	assert.True(t, refreshCookie.HttpOnly)
	assert.Equal(t, 604800, refreshCookie.MaxAge)

	resp, env = call(t, browser, http.MethodPost, server.URL+"/auth/login", model.LoginRequest{Email: "alice@example.com", Password: "pw123"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[model.AuthResult](t, env)
	assert.Equal(t, "/", result.Redirect)

	resp, env = call(t, browser, http.MethodGet, server.URL+"/auth/profile", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decode[model.UserEnvelope](t, env).User
	assert.NotEmpty(t, profile.ID)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, model.RoleUser, profile.Role)

	resp, env = call(t, browser, http.MethodPost, server.URL+"/admin/users", model.CreateUserRequest{Name: "Eve", Email: "eve@example.com", Password: "password123"}, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	register(t, server.URL, "Alice", "alice@example.com")

	resp, wrongPassword := call(t, http.DefaultClient, http.MethodPost, server.URL+"/auth/login", model.LoginRequest{Email: "alice@example.com", Password: "nope-nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, unknownEmail := call(t, http.DefaultClient, http.MethodPost, server.URL+"/auth/login", model.LoginRequest{Email: "ghost@example.com", Password: "password123"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NotNil(t, wrongPassword.Error)
	require.NotNil(t, unknownEmail.Error)
	assert.Equal(t, wrongPassword.Error.Message, unknownEmail.Error.Message)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	register(t, server.URL, "Alice", "alice@example.com")

	resp, env := call(t, http.DefaultClient, http.MethodPost, server.URL+"/auth/register", model.RegisterRequest{Name: "Alice 2", Email: "alice@example.com", Password: "password123"}, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	resp, _ = call(t, http.DefaultClient, http.MethodPost, server.URL+"/auth/register", map[string]string{"email": "bad"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNewLoginInvalidatesPreviousRefreshToken(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	register(t, server.URL, "Alice", "alice@example.com")

	first := login(t, server.URL, "alice@example.com", "password123")
	second := login(t, server.URL, "alice@example.com", "password123")
	assert.NotEqual(t, first.refresh, second.refresh)

	resp, _ := refresh(t, server.URL, first.refresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = refresh(t, server.URL, second.refresh)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefreshRotation(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	alice := register(t, server.URL, "Alice", "alice@example.com")

	resp, env := refresh(t, server.URL, alice.refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rotated := sessionFrom(t, resp, env)
	assert.NotEqual(t, alice.refresh, rotated.refresh)

	resp, env = refresh(t, server.URL, alice.refresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	cleared := cookieNamed(resp, "refreshToken")
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	resp, _ = refresh(t, server.URL, rotated.refresh)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRefreshWithCookie(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	browser := newBrowser(t)

	resp, _ := call(t, browser, http.MethodPost, server.URL+"/auth/register", model.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "password123"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := call(t, browser, http.MethodPost, server.URL+"/auth/refresh-token", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice@example.com", decode[model.AuthResult](t, env).User.Email)

	resp, _ = call(t, browser, http.MethodPost, server.URL+"/auth/refresh-token", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "the jar now carries the rotated token")
}

func TestConcurrentRefreshHasOneWinner(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	alice := register(t, server.URL, "Alice", "alice@example.com")

	const attempts = 6
	codes := make(chan int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(server.URL+"/auth/refresh-token", "application/json",
				bytes.NewReader([]byte(`{"refresh_token":"`+alice.refresh+`"}`)))
			if err != nil {
				codes <- 0
				return
			}
			_ = resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)

	ok := 0
	for code := range codes {
		if code == http.StatusOK {
			ok++
		} else {
			assert.Equal(t, http.StatusUnauthorized, code)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestLogoutRevokesAndClearsCookies(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	browser := newBrowser(t)

	resp, env := call(t, browser, http.MethodPost, server.URL+"/auth/register", model.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "password123"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	alice := sessionFrom(t, resp, env)

	resp, _ = call(t, browser, http.MethodPost, server.URL+"/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, name := range []string{"accessToken", "refreshToken"} {
		c := cookieNamed(resp, name)
		require.NotNil(t, c, name)
		assert.Negative(t, c.MaxAge, name)
	}

	resp, _ = refresh(t, server.URL, alice.refresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, browser, http.MethodGet, server.URL+"/auth/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodPost, server.URL+"/auth/logout", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "logout without a session still succeeds")
}

func TestAccessTokenExpiry(t *testing.T) {
	server, clock := newTestServer(t, testConfig())
	alice := register(t, server.URL, "Alice", "alice@example.com")

	resp, _ := call(t, http.DefaultClient, http.MethodGet, server.URL+"/auth/profile", nil, alice.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	clock.Advance(16 * time.Minute)

	resp, env := call(t, http.DefaultClient, http.MethodGet, server.URL+"/auth/profile", nil, alice.access)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Message, "expired")

	resp, env = refresh(t, server.URL, alice.refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renewed := sessionFrom(t, resp, env)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/auth/profile", nil, renewed.access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	clock.Advance(8 * 24 * time.Hour)
	resp, _ = refresh(t, server.URL, renewed.refresh)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnauthorizedIsDistinctFromForbidden(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	alice := register(t, server.URL, "Alice", "alice@example.com")
	admin := login(t, server.URL, adminEmail, adminPassword)

	adminRoutes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/admin/users"},
		{http.MethodGet, "/admin/dashboard/stats"},
		{http.MethodGet, "/admin/audit"},
		{http.MethodPut, "/admin/users/" + alice.user.ID + "/make-admin"},
	}

	for _, route := range adminRoutes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			resp, _ := call(t, http.DefaultClient, route.method, server.URL+route.path, nil, "")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			resp, _ = call(t, http.DefaultClient, route.method, server.URL+route.path, nil, "not-a-token")
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

			resp, _ = call(t, http.DefaultClient, route.method, server.URL+route.path, nil, alice.access)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}

	resp, _ := call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/users", nil, admin.access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminLoginRedirect(t *testing.T) {
	server, _ := newTestServer(t, testConfig())

	resp, env := call(t, http.DefaultClient, http.MethodPost, server.URL+"/auth/login", model.LoginRequest{Email: adminEmail, Password: adminPassword}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[model.AuthResult](t, env)
	assert.Equal(t, "/admin", result.Redirect)
	assert.Equal(t, model.RoleAdmin, result.User.Role)
}

func TestPostLifecycle(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	alice := register(t, server.URL, "Alice", "alice@example.com")
	bob := register(t, server.URL, "Bob", "bob@example.com")
	admin := login(t, server.URL, adminEmail, adminPassword)

	resp, _ := call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts", model.PostRequest{Title: "Anon", Content: "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env := call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts", model.PostRequest{Title: "Hello", Content: "World"}, alice.access)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[model.Post](t, env)
	assert.Equal(t, "Alice", post.Author.Name)

	resp, env = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[model.PostList](t, env).Posts, 1)

	resp, _ = call(t, http.DefaultClient, http.MethodPut, server.URL+"/posts/"+post.ID, model.PostRequest{Title: "Mine now", Content: "x"}, bob.access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = call(t, http.DefaultClient, http.MethodPut, server.URL+"/posts/"+post.ID, model.PostRequest{Title: "Hello again", Content: "World"}, alice.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello again", decode[model.Post](t, env).Title)

	resp, env = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts/"+post.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello again", decode[model.Post](t, env).Title)

	resp, env = call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts/"+post.ID+"/comments", model.CommentRequest{Content: "Nice"}, bob.access)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Bob", decode[model.Comment](t, env).AuthorName)

	resp, _ = call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts/"+post.ID+"/comments", model.CommentRequest{Content: "Guest"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts/"+post.ID+"/comments", model.CommentRequest{Content: "Guest", Name: "Visitor"}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts/"+post.ID+"/comments", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[model.CommentList](t, env).Comments, 2)

	resp, _ = call(t, http.DefaultClient, http.MethodDelete, server.URL+"/posts/"+post.ID, nil, bob.access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodDelete, server.URL+"/posts/"+post.ID, nil, admin.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts/"+post.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts/"+post.ID+"/comments", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env = call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/dashboard/stats", nil, admin.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[model.DashboardStats](t, env)
	assert.Zero(t, stats.Posts)
	assert.Zero(t, stats.Comments)
}

func TestPostListCacheCoherence(t *testing.T) {
	store := memory.New()
	server, _ := newTestServer(t, testConfig(), app.WithMemoryStore(store))
	alice := register(t, server.URL, "Alice", "alice@example.com")

	resp, env := call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts", model.PostRequest{Title: "First", Content: "x"}, alice.access)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[model.Post](t, env)

	cached := getRaw(t, server.URL+"/posts")
	assert.Contains(t, string(cached), "First")

	first.Title = "Edited behind the cache"
	first.UpdatedAt = time.Now().UTC()
	require.NoError(t, store.Posts().Update(context.Background(), first))

	again := getRaw(t, server.URL+"/posts")
	assert.Equal(t, cached, again, "second read is served from the cache")

	fresh := getRaw(t, server.URL+"/posts?refresh=true")
	assert.Contains(t, string(fresh), "Edited behind the cache")
	assert.Equal(t, fresh, getRaw(t, server.URL+"/posts"), "bypass repopulates the entry")

	resp, _ = call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts", model.PostRequest{Title: "Second", Content: "y"}, alice.access)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	titles := make([]string, 0, 2)
	for _, p := range decode[model.PostList](t, env).Posts {
		titles = append(titles, p.Title)
	}
	assert.ElementsMatch(t, []string{"Second", "Edited behind the cache"}, titles)
}

func TestDraftsAreHiddenFromOthers(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	alice := register(t, server.URL, "Alice", "alice@example.com")
	bob := register(t, server.URL, "Bob", "bob@example.com")

	draft := false
	resp, env := call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts", model.PostRequest{Title: "WIP", Content: "x", Published: &draft}, alice.access)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[model.Post](t, env)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts/"+post.ID, nil, bob.access)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts/"+post.ID, nil, alice.access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = call(t, http.DefaultClient, http.MethodGet, server.URL+"/users/"+alice.user.ID+"/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[model.PostList](t, env).Posts)

	resp, env = call(t, http.DefaultClient, http.MethodGet, server.URL+"/users/"+alice.user.ID+"/posts", nil, alice.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[model.PostList](t, env).Posts, 1)
}

func TestCommentDeletion(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	alice := register(t, server.URL, "Alice", "alice@example.com")
	bob := register(t, server.URL, "Bob", "bob@example.com")

	resp, env := call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts", model.PostRequest{Title: "Hello", Content: "World"}, alice.access)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	post := decode[model.Post](t, env)

	resp, env = call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts/"+post.ID+"/comments", model.CommentRequest{Content: "Bob says hi"}, bob.access)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comment := decode[model.Comment](t, env)

	resp, _ = call(t, http.DefaultClient, http.MethodDelete, server.URL+"/comments/"+comment.ID, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodDelete, server.URL+"/comments/"+comment.ID, nil, alice.access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodDelete, server.URL+"/comments/"+comment.ID, nil, bob.access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodDelete, server.URL+"/comments/"+comment.ID, nil, bob.access)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidIDsAreBadRequests(t *testing.T) {
	server, _ := newTestServer(t, testConfig())

	resp, env := call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts/00000000-0000-0000-0000-000000000000", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminUserManagement(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	admin := login(t, server.URL, adminEmail, adminPassword)
	alice := register(t, server.URL, "Alice", "alice@example.com")
	bob := register(t, server.URL, "Bob", "bob@example.com")

	resp, env := call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/users?page=1&limit=2", nil, admin.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[model.UserList](t, env).Users, 2)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 3, env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)

	resp, env = call(t, http.DefaultClient, http.MethodPost, server.URL+"/admin/users", model.CreateUserRequest{Name: "Carol", Email: "carol@example.com", Password: "password123"}, admin.access)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.RoleUser, decode[model.UserEnvelope](t, env).User.Role)

	resp, env = call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/users?page=1&limit=2", nil, admin.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 4, env.Meta.Total, "user list cache dropped after create")

	resp, env = call(t, http.DefaultClient, http.MethodPut, server.URL+"/admin/users/"+alice.user.ID+"/make-admin", nil, admin.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RoleAdmin, decode[model.UserEnvelope](t, env).User.Role)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/dashboard/stats", nil, alice.access)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "role comes from the store, not the token")

	resp, _ = call(t, http.DefaultClient, http.MethodPut, server.URL+"/admin/users/"+alice.user.ID+"/revoke-admin", nil, alice.access)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodPut, server.URL+"/admin/users/"+alice.user.ID+"/revoke-admin", nil, admin.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/dashboard/stats", nil, alice.access)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, env = call(t, http.DefaultClient, http.MethodPost, server.URL+"/posts", model.PostRequest{Title: "Bob's", Content: "x"}, bob.access)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bobPost := decode[model.Post](t, env)

	resp, _ = call(t, http.DefaultClient, http.MethodDelete, server.URL+"/admin/users/"+admin.user.ID, nil, admin.access)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodDelete, server.URL+"/admin/users/"+bob.user.ID, nil, admin.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/users/"+bob.user.ID, nil, admin.access)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts/"+bobPost.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/auth/profile", nil, bob.access)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "deleted subject no longer authenticates")
}

func TestAuditTrail(t *testing.T) {
	server, _ := newTestServer(t, testConfig())
	admin := login(t, server.URL, adminEmail, adminPassword)

	resp, _ := call(t, http.DefaultClient, http.MethodPost, server.URL+"/auth/login", model.LoginRequest{Email: adminEmail, Password: "wrong-password"}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env := call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/audit?action=auth.login&status=failure", nil, admin.access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decode[model.AuditList](t, env).Items
	require.Len(t, items, 1)
	assert.Equal(t, adminEmail, items[0].Actor.Email)
	assert.Equal(t, "UNAUTHORIZED", items[0].Error)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/audit?status=bogus", nil, admin.access)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/admin/audit?actor_id=not-a-uuid", nil, admin.access)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimitRPM = 2
	server, _ := newTestServer(t, cfg)

	body := model.LoginRequest{Email: "ghost@example.com", Password: "whatever1"}
	for i := 0; i < 2; i++ {
		resp, _ := call(t, http.DefaultClient, http.MethodPost, server.URL+"/auth/login", body, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp, env := call(t, http.DefaultClient, http.MethodPost, server.URL+"/auth/login", body, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	resp, _ = call(t, http.DefaultClient, http.MethodGet, server.URL+"/posts", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "general routes use their own bucket")
}

func TestOperationalEndpoints(t *testing.T) {
	server, _ := newTestServer(t, testConfig())

	for _, path := range []string{"/health", "/metrics", "/openapi.yaml", "/docs"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(server.URL + "/auth/profile")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}
