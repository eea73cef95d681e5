package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/projaxis/authcore/internal/api/handlers"
	"github.com/projaxis/authcore/internal/api/middleware"
	"github.com/projaxis/authcore/internal/audit"
	"github.com/projaxis/authcore/internal/auth"
	"github.com/projaxis/authcore/internal/authz"
	"github.com/projaxis/authcore/internal/membership"
	"github.com/projaxis/authcore/internal/session"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB             *gorm.DB
	Redis          *redis.Client
	Logger         *slog.Logger
	JWTService     *auth.JWTService
	AuthService    *auth.Service
	SessionManager *session.Manager
	AsynqClient    *asynq.Client
	AllowedOrigins []string // CORS allowed origins
	RateLimitReqs  int      // Rate limit requests per window
	RateLimitSecs  int      // Rate limit window in seconds
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	if cfg.RateLimitReqs > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitReqs, cfg.RateLimitSecs))
	}

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		// Default to localhost for development - configure in production
		allowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Core services
	evaluator := authz.NewEvaluator(cfg.DB)
	guard := membership.NewGuard(cfg.DB)
	recorder := audit.NewRecorder(cfg.AsynqClient, cfg.Logger)

	// Handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.JWTService, cfg.SessionManager)
	sessionHandler := handlers.NewSessionHandler(cfg.SessionManager, recorder)
	orgHandler := handlers.NewOrgHandler(cfg.DB, evaluator, guard, recorder)
	projectHandler := handlers.NewProjectHandler(cfg.DB, evaluator, guard, recorder)

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTService, cfg.AuthService))
			r.Use(middleware.Session(cfg.SessionManager, cfg.Logger))

			r.Post("/auth/logout", authHandler.Logout)

			r.Get("/me", sessionHandler.Me)
			r.Get("/me/permissions", sessionHandler.Permissions)

			r.Route("/session", func(r chi.Router) {
				r.Post("/project", sessionHandler.SwitchProject)
				r.Post("/view-as", sessionHandler.StartViewAs)
				r.Delete("/view-as", sessionHandler.ClearViewAs)
			})

			r.Route("/orgs", func(r chi.Router) {
				r.Post("/", orgHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", orgHandler.Get)
					r.Put("/settings", orgHandler.UpdateSettings)
					r.Post("/retire", orgHandler.Retire)
					r.Post("/projects", projectHandler.Create)
					r.Route("/members", func(r chi.Router) {
						r.Get("/", orgHandler.ListMembers)
						r.Post("/", orgHandler.AddMember)
						r.Put("/{userID}", orgHandler.ChangeRole)
						r.Delete("/{userID}", orgHandler.RemoveMember)
					})
				})
			})

			r.Route("/projects/{id}", func(r chi.Router) {
				r.Get("/", projectHandler.Get)
				r.Route("/members", func(r chi.Router) {
					r.Get("/", projectHandler.ListMembers)
					r.Post("/", projectHandler.AddMember)
					r.Put("/{userID}", projectHandler.ChangeRole)
					r.Delete("/{userID}", projectHandler.RemoveMember)
				})
			})
		})
	})

	return &Router{r}
}
