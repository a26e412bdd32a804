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

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/user/register", h.register)
		r.Post("/api/user/login", h.login)
	})

	// the single dispatch endpoint: some actions run unauthenticated
	// (recovery and password change carry their own proof of identity),
	// so the token here is attached when present, required per action.
	router.Group(func(r chi.Router) {
		r.Use(h.withOptionalAuth)
		r.Post("/api/call", h.call)
	})

	return router
}
