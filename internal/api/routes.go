package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all HTTP routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://cymasphere.com", "http://localhost:3000", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	// Tracking endpoints are hit by mail clients; no auth, no CORS
	// restrictions matter here since they are plain GETs.
	r.Get("/track/open", h.TrackOpen)
	r.Get("/track/click", h.TrackClick)

	r.Route("/api", func(r chi.Router) {
		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/status", h.SchedulerStatus)
			r.With(h.requireControlSecret).Post("/", h.SchedulerControl)
		})
		r.Route("/promotions", func(r chi.Router) {
			r.Get("/active", h.ActivePromotion)
			r.Post("/track", h.TrackPromotion)
		})
	})

	return r
}

// requireControlSecret guards scheduler mutation behind a bearer secret.
// When no secret is configured the guard is disabled (local development).
func (h *Handlers) requireControlSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.controlSecret != "" {
			if r.Header.Get("Authorization") != "Bearer "+h.controlSecret {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
