package api

import (
	"github.com/go-chi/chi/v5"
)

// setupAPIRoutes sets up API v1 routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Health check
	r.Get("/health", s.HandleHealth)
	r.Get("/", s.HandleRoot)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.HandleLogin)
		r.Post("/refresh", s.HandleRefresh)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		// Users
		r.Route("/users", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListUsers)
			r.Post("/", s.HandleCreateUser)
			r.Get("/me", s.HandleGetCurrentUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetUser)
				r.Put("/", s.HandleUpdateUser)
				r.Delete("/", s.HandleDeleteUser)
			})
		})

		// Peers
		r.Route("/peers", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListPeers)
			r.Post("/", s.HandleCreatePeer)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetPeer)
				r.Put("/", s.HandleUpdatePeer)
				r.Delete("/", s.HandleDeletePeer)

				// Pairing key management
				r.Post("/pairing-key", s.HandleSetPairingKey)
				r.Post("/pairing-key/generate", s.HandleGeneratePairingKey)

				// Record fields
				r.Put("/class-of-device", s.HandleSetClassOfDevice)
				r.Put("/flags", s.HandleSetFlags)

				// Session history
				r.Get("/sessions", s.HandleListPeerSessions)
			})
		})

		// Link sessions
		r.Route("/sessions", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/{id}", s.HandleGetSession)
		})

		// Watchers
		r.Route("/watchers", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListWatchers)
			r.Post("/", s.HandleCreateWatcher)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.HandleGetWatcher)
				r.Put("/", s.HandleUpdateWatcher)
				r.Delete("/", s.HandleDeleteWatcher)

				// Integration settings
				r.Get("/integrations", s.HandleGetIntegrations)
				r.Put("/integrations/http", s.HandleUpdateHTTPIntegration)
				r.Put("/integrations/mqtt", s.HandleUpdateMQTTIntegration)
				r.Post("/integrations/mqtt/test", s.HandleTestMQTTIntegration)
			})
		})

		// Events
		r.Route("/events", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.HandleListEvents)
		})
	})
}
