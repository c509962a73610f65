package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/flowbot/flowbot/internal/apispec"
	"github.com/flowbot/flowbot/internal/auth"
	"github.com/flowbot/flowbot/internal/config"
	"github.com/flowbot/flowbot/internal/handler"
	"github.com/flowbot/flowbot/internal/middleware"
)

// routes groups the handlers mounted by setupRouter.
type routes struct {
	index     *handler.Handler
	health    *handler.HealthHandler
	ticketing *handler.TicketingHandler
	creds     *handler.CredentialHandler
	upload    *handler.UploadHandler
	results   *handler.ResultHandler
	embed     *handler.EmbedHandler
	apiKeys   *handler.APIKeyHandler
	admin     *handler.AdminHandler
	metrics   http.Handler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h routes,
	keys middleware.KeyStore,
	limiter interface {
		middleware.AuthCache
		middleware.RateLimiter
	},
	sessions *auth.SessionManager,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger, "/healthz", "/readyz", "/metrics"))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{
		IsDevelopment:    cfg.IsDevelopment(),
		PagePathPrefixes: []string{"/embed/"},
	}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	authCfg := middleware.AuthConfig{
		Logger:   logger,
		Keys:     keys,
		Cache:    limiter,
		Sessions: sessions,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        logger,
		Limiter:       limiter,
		APIEnabled:    cfg.RateLimitAPIEnabled,
		PublicEnabled: cfg.RateLimitPublicEnabled,
		PublicRPS:     cfg.RateLimitPublicRPS,
		PublicBurst:   cfg.RateLimitPublicBurst,
	}

	// Probes and service documents (no auth required)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Method(http.MethodGet, "/metrics", h.metrics)
	r.Method(http.MethodGet, "/openapi.yaml", apispec.Handler())
	r.Get("/", h.index.Hello)

	// Builder API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(corsCfg))
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitAPI(rateLimitCfg))

		r.With(middleware.RequireRead()).Get("/trudesk/tickettypes", h.ticketing.ListTicketTypes)

		r.Route("/workspaces/{workspaceId}/credentials", func(r chi.Router) {
			r.Use(middleware.ValidateIDParams("workspaceId"))
			r.With(middleware.RequireRead()).Get("/", h.creds.List)
			r.With(middleware.RequireWrite()).Post("/", h.creds.Create)
			r.With(middleware.RequireWrite(), middleware.ValidateIDParams("credentialId")).
				Delete("/{credentialId}", h.creds.Delete)
		})

		r.Route("/api-keys", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", h.apiKeys.ListAPIKeys)
			r.With(middleware.RequireAdmin()).Post("/", h.apiKeys.CreateAPIKey)
			r.With(middleware.RequireAdmin()).Delete("/{keyId}", h.apiKeys.RevokeAPIKey)
			r.With(middleware.RequireAdmin()).Post("/{keyId}/rotate", h.apiKeys.RotateAPIKey)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin())
			r.With(middleware.ValidateIDParams("workspaceId")).Get("/workspaces/{workspaceId}", h.admin.Workspace)
			r.Get("/api-keys", h.admin.ListAPIKeysByUser)
			r.Get("/stats", h.admin.Stats)
		})
	})

	// Called from any origin by the builder and embedded bots.
	r.With(
		handler.AllowAnyOrigin,
		middleware.Auth(authCfg),
		middleware.RateLimitAPI(rateLimitCfg),
		middleware.RequireUpload(),
	).HandleFunc("/api/storage/upload-url", h.upload.UploadURL)

	// Public viewer endpoints, limited per client IP
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitIP(rateLimitCfg))

		r.With(handler.AllowAnyOrigin, middleware.ValidateIDParams("typebotId", "resultId")).
			HandleFunc("/api/typebots/{typebotId}/results/{resultId}/ticket/{ticketId}", h.results.TicketVariables)
		r.With(middleware.ValidateIDParams("typebotId")).
			Get("/embed/{typebotId}", h.embed.Standard)
	})

	r.NotFound(h.index.NotFound)
	r.MethodNotAllowed(h.index.MethodNotAllowed)

	return r
}
