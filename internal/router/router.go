// Package router sets up all HTTP routes and middleware chains for the
// bookswap API. Category reads require any authenticated user; writes
// require the admin role.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"bookswap/internal/auth"
	"bookswap/internal/handlers"
	"bookswap/internal/metrics"
	"bookswap/internal/middleware"
)

// Deps holds everything the router wires into its handlers.
type Deps struct {
	Categories  *handlers.Categories
	Auth        *handlers.Auth
	Verifier    middleware.TokenVerifier
	Revoker     auth.Revoker
	Metrics     *metrics.Collector
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}).Handler)

	// Health and metrics, no auth.
	r.Get("/health", healthHandler)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Middleware)
		}
		r.Use(middleware.Authenticate(d.Verifier, d.Revoker))

		r.Post("/auth/logout", d.Auth.Logout)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", d.Categories.List)
			r.Get("/{id}", d.Categories.Get)
			r.Get("/{id}/path", d.Categories.Path)
			r.Get("/{id}/descendants", d.Categories.Descendants)

			// Admin only.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleAdmin))
				r.Post("/", d.Categories.Create)
				r.Put("/{id}", d.Categories.Update)
				r.Patch("/{id}/status", d.Categories.SetStatus)
				r.Delete("/{id}", d.Categories.Delete)
			})
		})
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
