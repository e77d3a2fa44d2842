package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/questlines/engine/internal/api/handlers"
	mw "github.com/questlines/engine/internal/api/middleware"
)

type Dependencies struct {
	QuestlinesHandler *handlers.QuestlinesHandler
	HealthHandler     *handlers.HealthHandler
	// RateLimiter is optional; without it requests are not limited.
	RateLimiter *mw.IPRateLimiter
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	if dep.RateLimiter != nil {
		r.Use(dep.RateLimiter.Middleware)
	}
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	r.Route("/api", func(api chi.Router) {
		api.Route("/questlines", func(qr chi.Router) {
			qr.Get("/", dep.QuestlinesHandler.List)
			qr.Post("/", dep.QuestlinesHandler.Create)
			qr.Get("/{id}", dep.QuestlinesHandler.Get)
			qr.Put("/{id}", dep.QuestlinesHandler.Update)
			qr.Delete("/{id}", dep.QuestlinesHandler.Delete)
			qr.Get("/{id}/export", dep.QuestlinesHandler.Export)
		})
	})

	return r
}
