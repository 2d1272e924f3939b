package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/rs/cors"

	"pricescout/internal/config"
	"pricescout/internal/extract"
	"pricescout/internal/observability"
	"pricescout/internal/rates"
	"pricescout/internal/storage"
)

// Server exposes the extraction service over HTTP: the /parse endpoint
// consumed by the ordering bot plus the admin surface (rates, order
// statistics, broadcast recipients).
type Server struct {
	mux       *http.ServeMux
	handler   http.Handler
	srv       *http.Server
	cfg       *config.ServerConfig
	extractor *extract.Extractor
	store     storage.Store
	rates     *rates.Store
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewServer wires up routes and middleware.
func NewServer(cfg *config.ServerConfig, ex *extract.Extractor, store storage.Store, rateStore *rates.Store, metrics *observability.Metrics, logger *slog.Logger) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		cfg:       cfg,
		extractor: ex,
		store:     store,
		rates:     rateStore,
		metrics:   metrics,
		logger:    logger.With("component", "api_server"),
	}

	s.registerRoutes()

	limiter := tollbooth.NewLimiter(cfg.RequestsPerSecond, nil)
	rateLimited := tollbooth.LimitHandler(limiter, s.mux)

	s.handler = cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}).Handler(rateLimited)

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /parse", s.handleParse)
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Admin surface
	s.mux.HandleFunc("GET /users", s.handleUsers)
	s.mux.HandleFunc("GET /orders", s.handleOrders)
	s.mux.HandleFunc("GET /rates", s.handleGetRates)
	s.mux.HandleFunc("PUT /rates/{code}", s.handleSetRate)
	s.mux.HandleFunc("POST /convert", s.handleConvert)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

// Start runs the server until the context is canceled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("HTTP server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}

// Handler returns the full middleware-wrapped handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// jsonError mirrors the {detail} error body the ordering bot expects.
func (s *Server) jsonError(w http.ResponseWriter, status int, detail string) {
	s.jsonResponse(w, status, map[string]string{"detail": detail})
}
