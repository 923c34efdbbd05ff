/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logger:     Structured request logging (zap)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the tracking frontend

ROUTE GROUPS:
  /track, /client/{code}   Public lookups
  /admin, /admin/logout    Login form and logout
  /admin/dashboard|manage  Admin pages (page gate)
  /admin/api/*             Admin JSON API (API gate)
  /health                  Liveness

SEE ALSO:
  - handlers.go: JSON handlers
  - pages.go: HTML handlers
  - session.go: Gates
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// DefaultAllowedOrigins is used when no origins are configured.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultAllowedOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	// Public routes
	r.Get("/health", h.Health)
	r.Get("/track", h.Track)
	r.Get("/client/{code}", h.ClientPage)

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Get("/", h.LoginPage)
		r.Post("/", h.Login)
		r.Get("/logout", h.Logout)

		// Pages
		r.Group(func(r chi.Router) {
			r.Use(h.Sessions.RequireAdminPage)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/manage", h.ManagePage)
			r.Post("/manage", h.Manage)
		})

		// JSON API
		r.Route("/api", func(r chi.Router) {
			r.Use(h.Sessions.RequireAdminAPI)

			r.Get("/clients", h.ListClients)
			r.Post("/add-client", h.AddClient)

			r.Get("/steps", h.ListSteps)
			r.Post("/add-step", h.AddStep)
			r.Post("/delete-step", h.DeleteStep)
			r.Post("/reorder-steps", h.ReorderSteps)

			r.Route("/client/{code}", func(r chi.Router) {
				r.Get("/checklist", h.ClientChecklist)
				r.Get("/all-steps", h.AllSteps)
				r.Post("/toggle-step", h.ToggleStep)
				r.Post("/add-step", h.EnableStep)
				r.Post("/delete-step", h.DisableStep)
				r.Post("/toggle-done", h.ToggleDone)
			})
		})
	})

	return r
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
