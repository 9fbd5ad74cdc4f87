// Package server assembles the HTTP API: routes, middleware chain, and the
// websocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/fundrail/fundrail/internal/domain"
	"github.com/fundrail/fundrail/internal/server/handler"
	"github.com/fundrail/fundrail/internal/server/middleware"
	"github.com/fundrail/fundrail/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimit caps mutating requests per client IP per RateWindow.
	// Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers.
type Handlers struct {
	Health    *handler.HealthHandler
	Campaigns *handler.CampaignHandler
	Pledges   *handler.PledgeHandler
	Backers   *handler.BackerHandler
	Media     *handler.MediaHandler
}

// Server is the headless HTTP + websocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. Mutating routes
// pass through the rate limiter; everything passes through auth, logging,
// and CORS.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	limited := func(h http.HandlerFunc) http.Handler {
		if limiter == nil || cfg.RateLimit <= 0 {
			return h
		}
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		return middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}

	// Health check (no auth required, handled below the auth layer too).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Campaign endpoints.
	mux.Handle("POST /api/campaigns", limited(handlers.Campaigns.CreateCampaign))
	mux.HandleFunc("GET /api/campaigns", handlers.Campaigns.ListCampaigns)
	mux.HandleFunc("GET /api/campaigns/by-ledger-id/{id}", handlers.Campaigns.GetCampaignByLedgerID)
	mux.HandleFunc("GET /api/campaigns/{id}", handlers.Campaigns.GetCampaign)
	mux.Handle("POST /api/campaigns/{id}/deploy", limited(handlers.Campaigns.DeployCampaign))
	mux.Handle("POST /api/campaigns/{id}/sync", limited(handlers.Campaigns.SyncCampaign))
	mux.HandleFunc("GET /api/campaigns/{id}/tiers", handlers.Campaigns.ListTiers)

	// Pledge endpoints.
	mux.Handle("POST /api/pledges", limited(handlers.Pledges.CreatePledge))
	mux.HandleFunc("GET /api/pledges", handlers.Pledges.ListPledges)

	// Backer profile endpoints.
	mux.HandleFunc("GET /api/backers/{address}", handlers.Backers.GetBacker)
	mux.Handle("PUT /api/backers/{address}", limited(handlers.Backers.UpsertBacker))

	// Media endpoints (absent when blob storage is not wired).
	if handlers.Media != nil {
		mux.Handle("POST /api/media", limited(handlers.Media.UploadMedia))
		mux.HandleFunc("GET /api/media/presign", handlers.Media.PresignMedia)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// requests to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware sets CORS headers for the allowed origins. No configured
// origins means allow all.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
