package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Routes returns the http.Handler with all routes and middleware configured.
// The websocket route sits outside the request timeout so the connection
// can outlive it.
func (g *Gateway) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(g.loggingMiddleware)
	r.Use(corsMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(g.cfg.Gateway.RequestTimeout))

		r.Get("/health", g.healthHandler)

		r.Route("/v1", func(r chi.Router) {
			r.Get("/status", g.statusHandler)

			r.Post("/auth/challenge", g.challengeHandler)
			r.Post("/register", g.registerHandler)

			r.Post("/entries", g.submitEntryHandler)
			r.Get("/entries/count", g.entryCountHandler)
			r.Get("/entries/{id}", g.getEntryHandler)
			r.Get("/entries/{id}/verify", g.verifyEntryHandler)

			r.Get("/users/{address}", g.getUserHandler)

			r.Get("/events", g.listEventsHandler)
		})
	})

	r.Get("/v1/events/ws", g.eventsWebsocketHandler)

	return r
}
