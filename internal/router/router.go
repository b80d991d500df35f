package router

import (
	"net/http"

	"socialcredit-api/internal/handler"
	"socialcredit-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	LedgerHandler  *handler.LedgerHandler
	WorkHandler    *handler.WorkHandler
	AdminHandler   *handler.AdminHandler
	AuthMiddleware func(http.Handler) http.Handler
	AdminKey       string
	Metrics        bool
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", "X-Admin-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	if cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	adminOnly := middleware.RequireAdminKey(cfg.AdminKey)

	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			if h := cfg.LedgerHandler; h != nil {
				r.Route("/accounts", func(r chi.Router) {
					r.Post("/link", h.Link)
					r.With(adminOnly).Post("/link-admin", h.LinkAdmin)

					r.Route("/{discord_id}", func(r chi.Router) {
						r.Get("/", h.GetAccount)
						r.Post("/ledger/open", h.OpenLedger)
						r.Put("/ledger", h.BindLedger)
						r.Get("/transfers", h.ListTransfers)
						r.Get("/minecraft", h.MinecraftName)
					})
				})

				r.Get("/lookup/minecraft/{username}", h.LookupMinecraft)
				r.Get("/lookup/channel/{channel_id}", h.LookupChannel)
				r.Post("/transfers", h.Transfer)
			}

			if h := cfg.WorkHandler; h != nil {
				r.Route("/work/{kind}", func(r chi.Router) {
					r.Get("/", h.FindByName)
					r.With(adminOnly).Post("/", h.Create)
					r.With(adminOnly).Post("/accept", h.Accept)
					r.Get("/{message_id}", h.Get)
					r.Get("/{message_id}/claims", h.ListClaims)
					r.Post("/{message_id}/claims", h.Claim)
				})
			}

			if h := cfg.AdminHandler; h != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Use(adminOnly)

					r.Get("/stats", h.GetStats)
					r.Get("/audit", h.GetAuditEvents)
					r.Put("/balances/{discord_id}", h.SetBalance)
					r.Get("/settings", h.GetSettings)
					r.Patch("/settings", h.UpdateSettings)

					r.Route("/sessions/{admin_id}", func(r chi.Router) {
						r.Post("/", h.StartSession)
						r.Delete("/", h.CancelSession)
						r.Post("/reply", h.SessionReply)
					})
				})
			}
		})
	})

	return r
}
