package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"go-blog-api/internal/config"
	"go-blog-api/internal/handler"
	"go-blog-api/internal/metrics"
	"go-blog-api/internal/middleware"
	"go-blog-api/internal/model"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Posts    *handler.PostHandler
	Comments *handler.CommentHandler
	Admin    *handler.AdminHandler
	Audit    *handler.AuditHandler
	Docs     *handler.DocsHandler
}

// HealthCheck reports whether the backing store is reachable.
type HealthCheck func(ctx context.Context) error

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, health HealthCheck) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics)
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", healthHandler(health))
	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler())
	}
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/docs", h.Docs.SwaggerUI)

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Use(middleware.NoStore)
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.Post("/refresh-token", h.Auth.Refresh)
			auth.With(authMiddleware.OptionalAuth).Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/profile", h.Auth.Profile)
		})

		api.Route("/posts", func(posts chi.Router) {
			posts.Get("/", h.Posts.List)
			posts.With(authMiddleware.RequireAuth).Post("/", h.Posts.Create)

			posts.Route("/{id}", func(post chi.Router) {
				post.With(authMiddleware.OptionalAuth).Get("/", h.Posts.Get)
				post.With(authMiddleware.RequireAuth).Put("/", h.Posts.Update)
				post.With(authMiddleware.RequireAuth).Delete("/", h.Posts.Delete)
				post.With(authMiddleware.OptionalAuth).Get("/comments", h.Comments.List)
				post.With(authMiddleware.OptionalAuth).Post("/comments", h.Comments.Create)
			})
		})

		api.With(authMiddleware.OptionalAuth).Get("/users/{id}/posts", h.Posts.ListByAuthor)
		api.With(authMiddleware.RequireAuth).Delete("/comments/{id}", h.Comments.Delete)

		api.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth, authMiddleware.RequireRole(model.RoleAdmin))

			admin.Get("/users", h.Admin.ListUsers)
			admin.Post("/users", h.Admin.CreateUser)
			admin.Get("/users/{id}", h.Admin.GetUser)
			admin.Delete("/users/{id}", h.Admin.DeleteUser)
			admin.Put("/users/{id}/make-admin", h.Admin.MakeAdmin)
			admin.Put("/users/{id}/revoke-admin", h.Admin.RevokeAdmin)
			admin.Get("/dashboard/stats", h.Admin.DashboardStats)
			admin.Get("/audit", h.Audit.List)
		})
	})

	return r
}

func healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				slog.Error("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
