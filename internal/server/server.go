// Package server exposes the relay's HTTP surface: health, contact and its
// booking alias, wrapped in correlation, CORS, rate-limit and access-log
// middleware.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vipspot/contact-relay/internal/config"
	"github.com/vipspot/contact-relay/internal/contact"
	"github.com/vipspot/contact-relay/internal/ratelimit"
)

// Server hosts the contact relay HTTP API.
type Server struct {
	logger    zerolog.Logger
	contacts  *contact.Service
	limiter   *ratelimit.Limiter
	origins   []string
	bodyLimit int64

	addr            string
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// New constructs a Server around the contact pipeline.
func New(cfg *config.Config, contacts *contact.Service, limiter *ratelimit.Limiter, logger zerolog.Logger) *Server {
	return &Server{
		logger:          logger,
		contacts:        contacts,
		limiter:         limiter,
		origins:         cfg.HTTP.AllowedOrigins,
		bodyLimit:       cfg.HTTP.BodyLimitBytes,
		addr:            fmt.Sprintf(":%d", cfg.App.Port),
		shutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
}

// Handler assembles the full middleware chain. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)

	contactChain := withRateLimit(s.limiter, http.HandlerFunc(s.handleContact))
	mux.Handle("/contact", contactChain)
	mux.Handle("/booking", contactChain)

	var handler http.Handler = mux
	handler = withCORS(s.origins, handler)
	handler = withAccessLog(s.logger, handler)
	handler = s.withRecover(handler)
	handler = withRequestID(handler)
	return handler
}

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Str("addr", s.addr).Msg("contact relay listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// withRecover converts panics into the standard server_error shape so every
// failure path keeps the one-contract promise to clients.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error().
					Interface("panic", rec).
					Str("rid", requestIDFrom(r.Context())).
					Msg("handler panic")
				writeError(w, http.StatusInternalServerError, "server_error", "Internal error", requestIDFrom(r.Context()))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
