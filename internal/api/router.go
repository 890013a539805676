package api

import (
	"net/http"

	"github.com/aidevlab/aidev-chat/internal/api/handler"
	customMiddleware "github.com/aidevlab/aidev-chat/internal/api/middleware"
	"github.com/aidevlab/aidev-chat/internal/config"
	"github.com/aidevlab/aidev-chat/internal/domain"
	"github.com/aidevlab/aidev-chat/internal/llm"
	"github.com/aidevlab/aidev-chat/internal/orchestrator"
	mongorepo "github.com/aidevlab/aidev-chat/internal/repository/mongo"
	redisrepo "github.com/aidevlab/aidev-chat/internal/repository/redis"
	"github.com/aidevlab/aidev-chat/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Dependencies carries the wired application components into the router.
type Dependencies struct {
	Orchestrator *orchestrator.Orchestrator
	Sessions     *session.Manager
	Messages     domain.MessageRepository
	Profiles     domain.ProfileRepository
	Gateway      *llm.Gateway
	Mongo        *mongorepo.DB
	Redis        *redisrepo.Client
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	chatHandler := handler.NewChatHandler(deps.Orchestrator)
	sessionHandler := handler.NewSessionHandler(deps.Sessions, deps.Messages)
	profileHandler := handler.NewProfileHandler(deps.Profiles, deps.Gateway)

	// Auth middleware
	authMiddleware := customMiddleware.NewAuthMiddleware(cfg.Auth.JWTSecret)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Mongo, deps.Redis))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/llm-providers", handler.ListLLMProviders(deps.Gateway, cfg.LLM.DefaultProvider))

			r.Post("/chat", chatHandler.Chat)

			r.Route("/conversations/{conversationID}", func(r chi.Router) {
				r.Get("/session", sessionHandler.Get)
				r.Get("/messages", sessionHandler.History)
			})

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Put("/", profileHandler.Update)
			})
		})
	})

	return r
}
