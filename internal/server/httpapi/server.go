// Package httpapi is the gateway facade: it exposes the boundary
// operations over HTTP/JSON, validates input shapes, and translates the
// error taxonomy into the uniform response envelope. It carries no business
// logic of its own.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apetrov/assetgate/internal/logging"
	"github.com/apetrov/assetgate/internal/server/services"
	"github.com/apetrov/assetgate/internal/server/uploads"
)

// Server wires the HTTP layer to the services.
type Server struct {
	address   string
	logger    logging.Logger
	users     *services.UserService
	files     *services.FileService
	uploads   *uploads.Manager
	jwtSecret []byte
}

func NewServer(address string, log logging.Logger, us *services.UserService,
	fs *services.FileService, um *uploads.Manager, secretKey string) *Server {
	return &Server{
		address:   address,
		logger:    log.With("module", "httpapi"),
		users:     us,
		files:     fs,
		uploads:   um,
		jwtSecret: []byte(secretKey),
	}
}

// Router builds the chi router with the full middleware stack and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(httpMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.Register)
			r.Post("/login", s.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.jwtSecret))
			r.Post("/uploads", s.RequestUpload)
			r.Post("/uploads/{sessionID}/progress", s.UploadProgress)
			r.Post("/uploads/{sessionID}/complete", s.UploadComplete)
			r.Get("/files", s.ListFiles)
		})
	})

	return r
}

// Run starts the HTTP server and shuts it down gracefully when ctx ends.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.address,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}
