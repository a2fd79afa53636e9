package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)
	router.Use(middleware.Compress(5, "application/json"))

	router.Get("/api/version", h.getVersion)

	router.Route("/api/migration", func(r chi.Router) {
		// polling endpoints do not count as user activity
		r.Get("/status", h.getMigrationStatus)
		r.Get("/state", h.getMigrationState)
		r.Get("/result", h.getMigrationResult)

		r.Group(func(r chi.Router) {
			r.Use(h.withActivity)
			r.Post("/start", h.startMigration)
			r.Post("/pause", h.pauseMigration)
			r.Post("/resume", h.resumeMigration)
			r.Post("/cancel", h.cancelMigration)
			r.Post("/visibility", h.setVisibility)
			r.Post("/estimate", h.estimateMigration)
			r.Post("/preview", h.previewMigration)
		})
	})

	router.Route("/api/sync", func(r chi.Router) {
		r.Use(h.withActivity)
		r.Post("/operations", h.enqueueOperation)
		r.Get("/operations", h.listOperations)
		r.Post("/operations/{id}/retry", h.retryOperation)
		r.Get("/stats", h.getSyncStats)
		r.Post("/drain", h.drainQueue)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
