package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-blog-api/internal/auth"
	"go-blog-api/internal/cache"
	"go-blog-api/internal/config"
	"go-blog-api/internal/database"
	"go-blog-api/internal/handler"
	"go-blog-api/internal/middleware"
	"go-blog-api/internal/repository"
	"go-blog-api/internal/repository/memory"
	"go-blog-api/internal/router"
	"go-blog-api/internal/service"
)

type App struct {
	cfg          *config.Config
	server       *http.Server
	handler      http.Handler
	auth         *service.AuthService
	cleanupFuncs []func()
}

type Option func(*options)

type options struct {
	clock  auth.Clock
	memory *memory.Store
}

// WithClock replaces the clock used to issue and verify tokens.
func WithClock(clock auth.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithMemoryStore makes the memory driver serve from store instead of a fresh
// one. It has no effect with the postgres driver.
func WithMemoryStore(store *memory.Store) Option {
	return func(o *options) { o.memory = store }
}

// stores is the set of repositories one driver provides.
type stores struct {
	users    repository.UserStore
	posts    repository.PostStore
	comments repository.CommentStore
	audit    repository.AuditStore
	tx       repository.Transactor
	health   router.HealthCheck
	close    func()
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	st, err := openStores(ctx, cfg, o.memory)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, cleanupFuncs: []func(){st.close}}

	cacheStore, err := cache.NewMemory(cfg.CacheMaxEntries, nil)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	caches := service.NewCaches(cacheStore, service.CacheTTLs{
		Posts:    cfg.CacheTTLPosts,
		Comments: cfg.CacheTTLComments,
		Users:    cfg.CacheTTLUsers,
		Stats:    cfg.CacheTTLStats,
	})

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  []byte(cfg.JWTSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		Now:           o.clock,
	}, st.users)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	hasher := auth.NewHasher(cfg.BcryptCost)
	bearer := auth.NewBearerStrategy(tokens, st.users)
	authMiddleware := middleware.NewAuthMiddleware(bearer, auth.NewOptionalBearerStrategy(bearer))

	auditService := service.NewAuditService(st.audit)
	authService := service.NewAuthService(st.users, tokens, hasher, caches)
	postService := service.NewPostService(st.posts, st.comments, st.tx, caches)
	commentService := service.NewCommentService(st.comments, postService, caches)
	adminService := service.NewAdminService(st.users, st.posts, st.comments, st.tx, authService, caches)
	a.auth = authService

	if cfg.AdminEmail != "" {
		admin, changed, err := authService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("failed to seed admin account: %w", err)
		}
		if changed {
			slog.Info("admin account ensured", "email", admin.Email)
		}
	}

	a.handler = router.New(cfg, authMiddleware, router.Handlers{
		Auth: handler.NewAuthHandler(authService, auditService, handler.CookieOptions{
			Secure:     cfg.CookieSecure,
			Domain:     cfg.CookieDomain,
			AccessTTL:  tokens.AccessTTL(),
			RefreshTTL: tokens.RefreshTTL(),
		}),
		Posts:    handler.NewPostHandler(postService, auditService),
		Comments: handler.NewCommentHandler(commentService, auditService),
		Admin:    handler.NewAdminHandler(adminService, auditService),
		Audit:    handler.NewAuditHandler(auditService),
		Docs:     handler.NewDocsHandler(),
	}, st.health)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go cache.StartSweeper(sweepCtx, cacheStore, cfg.CacheSweepInterval)
	a.cleanupFuncs = append(a.cleanupFuncs, sweepCancel)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           a.handler,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		ReadTimeout:       cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, mem *memory.Store) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		if mem == nil {
			mem = memory.New()
		}
		return stores{
			users:    mem.Users(),
			posts:    mem.Posts(),
			comments: mem.Comments(),
			audit:    mem.Audit(),
			tx:       mem,
			close:    func() {},
		}, nil
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return stores{}, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	slog.Info("database ready")
	return stores{
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		audit:    repository.NewAuditRepository(db),
		tx:       db,
		health:   db.Health,
		close:    db.Close,
	}, nil
}

// Handler exposes the fully wired router.
func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) AuthService() *service.AuthService {
	return a.auth
}

func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr, "store", a.cfg.StoreDriver)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		a.cleanup()
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		slog.Info("shutdown requested", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

// Close releases the store and background workers without serving.
func (a *App) Close() {
	a.cleanup()
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
