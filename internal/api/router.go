package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Route("/device", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Patch("/", s.handlePatchDevice)
		})

		r.Route("/pairing", func(r chi.Router) {
			r.Post("/", s.handlePair)
			r.Delete("/", s.handleUnpair)
			r.Get("/offer", s.handlePendingOffer)
			r.Post("/answer", s.handleDeliverAnswer)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", s.handlePlaceOrder)
			r.Patch("/{clientID}", s.handleUpdateOrder)
		})

		r.Post("/sync", s.handleRequestSync)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}
