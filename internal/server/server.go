// Package server provides the HTTP server that receives provider
// notifications.
//
// # Webhook Endpoint
//
// {webhookPath} - Receives signed status updates. Every method is routed to
// the webhook handler, which answers 400 for anything but a correctly signed
// POST and 200 for an empty liveness probe.
//
// # Health
//
//   - GET /health - Liveness probe
package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sirosfoundation/go-bluem/internal/config"
	"github.com/sirosfoundation/go-bluem/pkg/reliability"
	"github.com/sirosfoundation/go-bluem/pkg/transport"
	"github.com/sirosfoundation/go-bluem/pkg/webhook"
)

// Server is the notification receiver
type Server struct {
	config  *config.Config
	logger  *slog.Logger
	router  chi.Router
	httpSrv *transport.Server
}

// New creates a server delivering verified notifications to sink
func New(cfg *config.Config, verifier *webhook.Verifier, sink webhook.Sink, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: cfg,
		logger: logger,
	}

	tc := transport.DefaultConfig()
	if cfg.Server.TLS.Enabled {
		cert, err := tls.LoadX509KeyPair(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("loading TLS key pair: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}

	s.router = chi.NewRouter()
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	hc := &webhook.HandlerConfig{
		Verifier:     verifier,
		Sink:         sink,
		Logger:       logger,
		MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
	}
	if cfg.Webhook.DuplicateWindow > 0 {
		hc.Duplicates = reliability.NewDuplicateTracker(cfg.Webhook.DuplicateWindow)
	}
	s.registerRoutes(webhook.NewHandler(hc))

	s.httpSrv = transport.NewServer(cfg.Server.Addr, s.router, tc)
	return s, nil
}

func (s *Server) registerRoutes(hook http.Handler) {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle(s.config.Server.WebhookPath, hook)
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening on the configured address
func (s *Server) Start() error {
	s.logger.Info("starting server",
		"addr", s.httpSrv.Addr(),
		"tls", s.httpSrv.TLS(),
		"webhook", s.config.Server.WebhookPath)
	return s.httpSrv.Start()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Helper functions

func (s *Server) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("writing response", "error", err)
	}
}
