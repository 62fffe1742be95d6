// Package api provides the HTTP API server and handlers for the Loopi server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/loopi-signage/loopi-server/internal/http/response"
	"github.com/loopi-signage/loopi-server/internal/ratelimit"
	"github.com/loopi-signage/loopi-server/internal/service"
)

// Device identity cookies set by the claim flow and read back by the
// display endpoint.
const (
	DeviceIDCookie    = "loopi_device_id"
	DeviceTokenCookie = "loopi_device_token"

	// deviceCookieMaxAge is one year; the token inside may rotate much
	// sooner, at which point the cookie is simply stale.
	deviceCookieMaxAge = 60 * 60 * 24 * 365
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	devices   *service.DeviceService
	playlists *service.PlaylistService
	media     *service.MediaService
	limiter   *ratelimit.KeyedRateLimiter
	router    *chi.Mux
	logger    *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// The limiter throttles the device-facing claim and heartbeat
// endpoints per device ID.
func NewServer(
	devices *service.DeviceService,
	playlists *service.PlaylistService,
	media *service.MediaService,
	limiter *ratelimit.KeyedRateLimiter,
	logger *slog.Logger,
) *Server {
	s := &Server{
		devices:   devices,
		playlists: playlists,
		media:     media,
		limiter:   limiter,
		router:    chi.NewRouter(),
		logger:    logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Device management.
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleRegisterDevice)
			r.Delete("/{id}", s.handleDeleteDevice)
			r.Post("/{id}/rotate-token", s.handleRotateToken)
			r.Post("/{id}/mark-active", s.handleMarkActive)
			r.Post("/{id}/renew-license", s.handleRenewLicense)
			r.Post("/heartbeat", s.handleHeartbeat)
		})

		// Device-facing claim and display flow.
		r.Get("/claim", s.handleClaim)
		r.Get("/display", s.handleDisplay)

		// Playlists.
		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.handleListPlaylists)
			r.Post("/", s.handleCreatePlaylist)
			r.Post("/backfill", s.handleBackfillPlaylists)
			r.Get("/{name}", s.handleGetPlaylist)
			r.Patch("/{name}/color", s.handleUpdatePlaylistColor)
			r.Put("/{name}/images", s.handleSetPlaylistImages)
			r.Delete("/{name}", s.handleDeletePlaylist)
		})

		// Media schedules.
		r.Route("/media", func(r chi.Router) {
			r.Get("/", s.handleListMedia)
			r.Get("/active", s.handleActiveMedia)
			r.Put("/{filename}", s.handleUpsertMedia)
			r.Delete("/{filename}", s.handleDeleteMedia)
		})
	})
}

// allowDevice applies the per-device rate limit for claim and
// heartbeat. Returns false after writing the 429 response.
func (s *Server) allowDevice(w http.ResponseWriter, r *http.Request, deviceID string) bool {
	if s.limiter == nil || s.limiter.Allow(deviceID) {
		return true
	}

	if s.logger != nil {
		s.logger.Warn("Rate limit exceeded",
			"device_id", deviceID,
			"path", r.URL.Path,
		)
	}
	response.TooManyRequests(w, "Too many requests. Please try again later.", s.logger)
	return false
}

// handleHealthCheck reports server liveness.
// GET /health
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "ok"}, s.logger)
}
