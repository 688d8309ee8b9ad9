package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Clausewise/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Clausewise/internal/api/middlewares"
	"github.com/markdave123-py/Clausewise/internal/config"
)

// Handlers groups the route handlers mounted by NewRouter.
type Handlers struct {
	Session   *handlers.SessionHandler
	Review    *handlers.ReviewHandler
	Update    *handlers.UpdateHandler
	Reference *handlers.ReferenceHandler
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewRouter builds and wires all routes.
func NewRouter(cfg *config.Config, auth appMiddleware.Authenticator, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger)
	r.Use(middleware.Recoverer)
	// AI calls may run for AITimeout; leave room to persist the answer.
	r.Use(middleware.Timeout(cfg.AITimeout + time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Get("/health", h.Session.Health)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.RequireUser(auth))

			protected.Get("/session", h.Session.Session)
			protected.Post("/logout", h.Session.Logout)

			protected.Post("/contract-review", h.Review.Submit)
			protected.Route("/contract-review/{reviewID}", func(rr chi.Router) {
				rr.Get("/", h.Review.Get)
				rr.Put("/selection", h.Review.SaveSelection)
				rr.Post("/extract", h.Review.Extract)
				rr.Post("/commit", h.Review.Commit)
				rr.Patch("/status", h.Review.UpdateStatus)
			})

			protected.Get("/contract-review-update/{reviewID}", h.Update.Get)
			protected.Post("/contract-review-update/{reviewID}/revise", h.Update.Revise)
			protected.Patch("/contract-updates/{updateID}/status", h.Update.SetStatus)
			protected.Post("/contract-review-update-translation/{reviewID}", h.Update.Translate)
			protected.Get("/contract-review-update-download/{reviewID}", h.Update.Download)
			protected.Get("/update-tracking", h.Update.Tracking)
			protected.Get("/view-file-changes/{reviewID}", h.Update.Changes)

			protected.Post("/references", h.Reference.Upload)
			protected.Get("/references", h.Reference.List)
		})
	})

	return r
}

func NewServer(cfg *config.Config, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}}
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
