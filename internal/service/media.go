package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/loopi-signage/loopi-server/internal/domain"
	domainerrors "github.com/loopi-signage/loopi-server/internal/errors"
	"github.com/loopi-signage/loopi-server/internal/store"
)

// MediaService manages media schedules and resolves what a display
// should show today.
type MediaService struct {
	store   *store.Store
	devices *DeviceService
	logger  *slog.Logger
}

// NewMediaService creates a new media service.
func NewMediaService(st *store.Store, devices *DeviceService, logger *slog.Logger) *MediaService {
	return &MediaService{
		store:   st,
		devices: devices,
		logger:  logger,
	}
}

// UpsertMediaRequest contains a media asset's schedule.
type UpsertMediaRequest struct {
	Filename  string   `json:"filename" validate:"required,max=255"`
	Start     string   `json:"start" validate:"required,datetime=2006-01-02"`
	End       string   `json:"end" validate:"required,datetime=2006-01-02"`
	Playlists []string `json:"playlists"`
}

// Upsert creates or replaces the schedule for a media asset.
func (s *MediaService) Upsert(ctx context.Context, req UpsertMediaRequest) (*domain.MediaAsset, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	asset := &domain.MediaAsset{
		Filename:  req.Filename,
		Start:     req.Start,
		End:       req.End,
		Playlists: req.Playlists,
	}
	if err := asset.Validate(); err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	if err := s.store.PutMedia(ctx, asset); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("media schedule saved", "filename", req.Filename, "start", req.Start, "end", req.End)
	}
	return asset, nil
}

// Delete removes a media asset's schedule. Unknown filenames are a no-op.
func (s *MediaService) Delete(ctx context.Context, filename string) error {
	return s.store.DeleteMedia(ctx, filename)
}

// List returns all media schedules.
func (s *MediaService) List(ctx context.Context) ([]*domain.MediaAsset, error) {
	return s.store.ListMedia(ctx)
}

// ActiveFilenames returns the filenames whose date range covers the
// given day. Records with malformed dates are logged and skipped, never
// fatal.
func (s *MediaService) ActiveFilenames(ctx context.Context, day time.Time) ([]string, error) {
	assets, err := s.store.ListMedia(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]string, 0, len(assets))
	for _, asset := range assets {
		ok, err := asset.ActiveOn(day)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("skipping media with malformed dates", "filename", asset.Filename, "error", err)
			}
			continue
		}
		if ok {
			active = append(active, asset.Filename)
		}
	}
	return active, nil
}

// ActiveImagesForDevice resolves the device's assigned playlist and
// filters its image rotation to assets active on the given day,
// preserving the playlist's order. A device without a playlist, or
// whose playlist no longer exists, gets an empty rotation.
func (s *MediaService) ActiveImagesForDevice(ctx context.Context, device *domain.Device, day time.Time) ([]string, error) {
	if device.ActivePlaylist == "" {
		return []string{}, nil
	}

	playlist, err := s.store.GetPlaylist(ctx, device.ActivePlaylist)
	if err != nil {
		if domainerrors.Is(err, store.ErrPlaylistNotFound) {
			if s.logger != nil {
				s.logger.Warn("device assigned to missing playlist", "device_id", device.ID, "playlist", device.ActivePlaylist)
			}
			return []string{}, nil
		}
		return nil, err
	}

	activeNames, err := s.ActiveFilenames(ctx, day)
	if err != nil {
		return nil, err
	}
	activeSet := make(map[string]bool, len(activeNames))
	for _, name := range activeNames {
		activeSet[name] = true
	}

	images := make([]string, 0, len(playlist.Images))
	for _, img := range playlist.Images {
		if activeSet[img] {
			images = append(images, img)
		}
	}
	return images, nil
}
