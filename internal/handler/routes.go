package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"family-battle/internal/service"
)

// HealthChecker pings the backing store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds the HTTP surface's dependencies.
type Handler struct {
	sync *service.Sync
	db   HealthChecker
}

// New creates a new Handler instance.
func New(sync *service.Sync, db HealthChecker) *Handler {
	return &Handler{sync: sync, db: db}
}

// Router returns a configured chi router with all routes.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/families/battle", h.handleEnable)

		r.Route("/families/{familyID}/battle", func(r chi.Router) {
			r.Get("/", h.handleSnapshot)
			r.Post("/members", h.handleInvite)
			r.Get("/history", h.handleHistory)
			r.Get("/awards", h.handleAwards)
		})

		r.Post("/members/{memberID}/sessions", h.handleRecordSession)
	})

	return r
}
