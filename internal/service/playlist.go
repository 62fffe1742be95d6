package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/loopi-signage/loopi-server/internal/domain"
	domainerrors "github.com/loopi-signage/loopi-server/internal/errors"
	"github.com/loopi-signage/loopi-server/internal/store"
)

// PlaylistService manages playlist records and their image rotations.
type PlaylistService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewPlaylistService creates a new playlist service.
func NewPlaylistService(st *store.Store, logger *slog.Logger) *PlaylistService {
	return &PlaylistService{
		store:  st,
		logger: logger,
	}
}

// CreatePlaylistRequest contains new playlist data.
type CreatePlaylistRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// UpdateColorRequest changes a playlist's display color.
type UpdateColorRequest struct {
	Color string `json:"color" validate:"required,hexcolor"`
}

// SetImagesRequest replaces a playlist's image rotation order.
type SetImagesRequest struct {
	Images []string `json:"images" validate:"required"`
}

// Create stores a new playlist. Names are unique.
func (s *PlaylistService) Create(ctx context.Context, req CreatePlaylistRequest) (*domain.Playlist, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	playlist := domain.NewPlaylist(req.Name, req.Color)
	if err := s.store.CreatePlaylist(ctx, playlist); err != nil {
		if errors.Is(err, store.ErrPlaylistAlreadyExists) {
			return nil, domainerrors.AlreadyExistsf("playlist %s already exists", req.Name)
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("playlist created", "name", req.Name, "color", playlist.Color)
	}
	return playlist, nil
}

// Get retrieves a playlist by name.
func (s *PlaylistService) Get(ctx context.Context, name string) (*domain.Playlist, error) {
	playlist, err := s.store.GetPlaylist(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrPlaylistNotFound) {
			return nil, domainerrors.NotFoundf("playlist %s not found", name)
		}
		return nil, err
	}
	return playlist, nil
}

// List returns all playlists.
func (s *PlaylistService) List(ctx context.Context) ([]*domain.Playlist, error) {
	return s.store.ListPlaylists(ctx)
}

// UpdateColor changes a playlist's display color.
func (s *PlaylistService) UpdateColor(ctx context.Context, name string, req UpdateColorRequest) (*domain.Playlist, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	playlist, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	playlist.Color = req.Color
	if err := s.store.PutPlaylist(ctx, playlist); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("playlist color updated", "name", name, "color", req.Color)
	}
	return playlist, nil
}

// SetImages replaces the playlist's image rotation order.
func (s *PlaylistService) SetImages(ctx context.Context, name string, req SetImagesRequest) (*domain.Playlist, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	playlist, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	playlist.Images = req.Images
	if err := s.store.PutPlaylist(ctx, playlist); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("playlist images updated", "name", name, "count", len(req.Images))
	}
	return playlist, nil
}

// Delete removes a playlist and refreshes the assignment caches so the
// deleted playlist disappears from them. Devices that referenced it
// keep their reference; the rebuild skips names that no longer resolve.
// Deleting an unknown playlist is a no-op.
func (s *PlaylistService) Delete(ctx context.Context, name string) error {
	if err := s.store.DeletePlaylist(ctx, name); err != nil {
		return err
	}
	if err := s.store.RebuildAssignments(ctx); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("playlist deleted", "name", name)
	}
	return nil
}

// BackfillFromMetadata creates any playlist referenced by a media
// schedule that does not exist yet, using the default color. Returns
// the names created.
func (s *PlaylistService) BackfillFromMetadata(ctx context.Context) ([]string, error) {
	assets, err := s.store.ListMedia(ctx)
	if err != nil {
		return nil, err
	}

	var created []string
	for _, asset := range assets {
		for _, name := range asset.Playlists {
			if name == "" {
				continue
			}

			_, err := s.store.GetPlaylist(ctx, name)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrPlaylistNotFound) {
				return created, err
			}

			playlist := domain.NewPlaylist(name, domain.DefaultPlaylistColor)
			if err := s.store.CreatePlaylist(ctx, playlist); err != nil {
				// A concurrent create is fine; anything else is not
				if errors.Is(err, store.ErrPlaylistAlreadyExists) {
					continue
				}
				return created, fmt.Errorf("backfill playlist %s: %w", name, err)
			}
			created = append(created, name)
		}
	}

	if s.logger != nil && len(created) > 0 {
		s.logger.Info("backfilled playlists from media metadata", "count", len(created))
	}
	return created, nil
}
