package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loopi-signage/loopi-server/internal/http/response"
	"github.com/loopi-signage/loopi-server/internal/service"
)

// handleListPlaylists returns all playlists with their cached device
// assignments.
// GET /api/v1/playlists
func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.playlists.List(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, playlists, s.logger)
}

// handleCreatePlaylist creates a new playlist.
// POST /api/v1/playlists
func (s *Server) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePlaylistRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	playlist, err := s.playlists.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, playlist, s.logger)
}

// handleGetPlaylist returns one playlist.
// GET /api/v1/playlists/{name}
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	playlist, err := s.playlists.Get(r.Context(), name)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, playlist, s.logger)
}

// handleUpdatePlaylistColor changes a playlist's display color.
// PATCH /api/v1/playlists/{name}/color
func (s *Server) handleUpdatePlaylistColor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req service.UpdateColorRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	playlist, err := s.playlists.UpdateColor(r.Context(), name, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, playlist, s.logger)
}

// handleSetPlaylistImages replaces a playlist's image rotation order.
// PUT /api/v1/playlists/{name}/images
func (s *Server) handleSetPlaylistImages(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req service.SetImagesRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	playlist, err := s.playlists.SetImages(r.Context(), name, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, playlist, s.logger)
}

// handleDeletePlaylist removes a playlist.
// DELETE /api/v1/playlists/{name}
func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.playlists.Delete(r.Context(), name); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleBackfillPlaylists creates playlists referenced by media
// schedules that do not exist yet.
// POST /api/v1/playlists/backfill
func (s *Server) handleBackfillPlaylists(w http.ResponseWriter, r *http.Request) {
	created, err := s.playlists.BackfillFromMetadata(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]any{"created": created}, s.logger)
}
