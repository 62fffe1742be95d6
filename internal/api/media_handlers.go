package api

import (
	"encoding/json/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/loopi-signage/loopi-server/internal/domain"
	"github.com/loopi-signage/loopi-server/internal/http/response"
	"github.com/loopi-signage/loopi-server/internal/service"
)

// handleListMedia returns all media schedules.
// GET /api/v1/media
func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	assets, err := s.media.List(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, assets, s.logger)
}

// handleActiveMedia returns the filenames active on a given day,
// defaulting to today. ?date=YYYY-MM-DD overrides for previewing.
// GET /api/v1/media/active
func (s *Server) handleActiveMedia(w http.ResponseWriter, r *http.Request) {
	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(domain.DateLayout, raw)
		if err != nil {
			response.BadRequest(w, "date must be in YYYY-MM-DD format", s.logger)
			return
		}
		day = parsed
	}

	active, err := s.media.ActiveFilenames(r.Context(), day)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]any{"images": active}, s.logger)
}

// handleUpsertMedia creates or replaces a media asset's schedule.
// PUT /api/v1/media/{filename}
func (s *Server) handleUpsertMedia(w http.ResponseWriter, r *http.Request) {
	var req service.UpsertMediaRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.Filename = chi.URLParam(r, "filename")

	asset, err := s.media.Upsert(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, asset, s.logger)
}

// handleDeleteMedia removes a media asset's schedule.
// DELETE /api/v1/media/{filename}
func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	if err := s.media.Delete(r.Context(), filename); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
