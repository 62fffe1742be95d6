package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/loopi-signage/loopi-server/internal/auth"
	"github.com/loopi-signage/loopi-server/internal/config"
	"github.com/loopi-signage/loopi-server/internal/domain"
	domainerrors "github.com/loopi-signage/loopi-server/internal/errors"
	"github.com/loopi-signage/loopi-server/internal/id"
	"github.com/loopi-signage/loopi-server/internal/license"
	"github.com/loopi-signage/loopi-server/internal/store"
)

// DeviceService manages the device lifecycle: registration, seat
// claiming, token rotation, heartbeats, and license bookkeeping.
type DeviceService struct {
	store  *store.Store
	tokens *auth.TokenService
	cfg    config.DeviceConfig
	logger *slog.Logger
}

// NewDeviceService creates a new device service.
func NewDeviceService(st *store.Store, tokens *auth.TokenService, cfg config.DeviceConfig, logger *slog.Logger) *DeviceService {
	return &DeviceService{
		store:  st,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
	}
}

// DeviceLimit implements license.LimitProvider.
func (s *DeviceService) DeviceLimit() int { return s.cfg.Limit }

// RegisterDeviceRequest contains device registration or update data.
// OriginalDeviceID re-keys an existing record when the operator edits
// the device ID.
type RegisterDeviceRequest struct {
	DeviceID         string `json:"device_id" validate:"omitempty,max=128"`
	OriginalDeviceID string `json:"original_device_id" validate:"omitempty,max=128"`
	Name             string `json:"name" validate:"max=200"`
	ActivePlaylist   string `json:"active_playlist" validate:"max=200"`
}

// DeviceSummary is the management listing view of a device.
type DeviceSummary struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	ActivePlaylist   string     `json:"active_playlist"`
	Active           bool       `json:"active"`
	LastSeen         time.Time  `json:"last_seen"`
	DaysLeft         int        `json:"days_left"`
	LicenseType      string     `json:"license_type,omitempty"`
	LicenseExpiresAt *time.Time `json:"license_expires_at,omitempty"`
}

// HeartbeatResult reports what a heartbeat did to the device.
type HeartbeatResult struct {
	Device  *domain.Device `json:"-"`
	Expired bool           `json:"expired"`
	Rotated bool           `json:"rotated"`
}

// mutateDevices applies fn to the device set in one transaction and
// then rebuilds the playlist assignment caches. Every mutating device
// operation goes through here so a call site cannot forget the rebuild.
func (s *DeviceService) mutateDevices(ctx context.Context, fn func(devices map[string]*domain.Device) error) error {
	if err := s.store.UpdateDevices(ctx, fn); err != nil {
		return err
	}
	return s.store.RebuildAssignments(ctx)
}

// RegisterOrUpdate creates a device or updates an existing one's name
// and playlist assignment. New devices get a fresh auth token and start
// unclaimed; updates never touch the token or the active flag. When
// OriginalDeviceID names an existing record and differs from DeviceID,
// the whole record moves to the new key.
func (s *DeviceService) RegisterOrUpdate(ctx context.Context, req RegisterDeviceRequest) (*domain.Device, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		var err error
		deviceID, err = id.Generate("dev")
		if err != nil {
			return nil, fmt.Errorf("generate device ID: %w", err)
		}
	}

	created := false
	var result *domain.Device
	err := s.mutateDevices(ctx, func(devices map[string]*domain.Device) error {
		key := deviceID
		if req.OriginalDeviceID != "" {
			if _, ok := devices[req.OriginalDeviceID]; ok {
				key = req.OriginalDeviceID
			}
		}

		if existing, ok := devices[key]; ok {
			if key != deviceID {
				delete(devices, key)
				existing.ID = deviceID
				devices[deviceID] = existing
			}
			existing.Name = req.Name
			existing.ActivePlaylist = req.ActivePlaylist
			existing.Touch(time.Now())
			result = existing
			return nil
		}

		token, err := s.tokens.Issue()
		if err != nil {
			return fmt.Errorf("issue device token: %w", err)
		}
		device := domain.NewDevice(deviceID, req.Name, req.ActivePlaylist, token)
		devices[deviceID] = device
		created = true
		result = device
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		if created {
			s.logger.Info("device registered", "device_id", deviceID, "name", req.Name)
		} else {
			s.logger.Info("device updated", "device_id", deviceID, "playlist", req.ActivePlaylist)
		}
	}
	return result, nil
}

// Claim authorizes a device to take a seat using its auth token,
// typically via the QR claim link shown on the device. On success the
// claimed device becomes the only active one. Claiming an already
// active device succeeds without consuming another seat.
func (s *DeviceService) Claim(ctx context.Context, deviceID, token string) (*domain.Device, error) {
	var result *domain.Device
	err := s.mutateDevices(ctx, func(devices map[string]*domain.Device) error {
		device, ok := devices[deviceID]
		if !ok || !device.TokenMatches(token) {
			return domainerrors.Unauthorized("unknown device or invalid token")
		}

		if !license.CanActivate(devices, deviceID, s.cfg.Limit) {
			return domainerrors.SeatLimitExceededf("device limit exceeded (%d)", s.cfg.Limit)
		}

		// Exactly one device holds the live display at a time
		for id, d := range devices {
			d.Active = id == deviceID
		}
		result = device
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("device claimed", "device_id", deviceID)
	}
	return result, nil
}

// MarkActive is the management-page variant of Claim: the operator is
// already authenticated, so no device token is required.
func (s *DeviceService) MarkActive(ctx context.Context, deviceID string) error {
	err := s.mutateDevices(ctx, func(devices map[string]*domain.Device) error {
		if _, ok := devices[deviceID]; !ok {
			return domainerrors.NotFoundf("device %s not found", deviceID)
		}

		if !license.CanActivate(devices, deviceID, s.cfg.Limit) {
			return domainerrors.SeatLimitExceededf("you've reached your limit of %d active devices", s.cfg.Limit)
		}

		for id, d := range devices {
			d.Active = id == deviceID
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("device marked active", "device_id", deviceID)
	}
	return nil
}

// AuthorizeDisplay checks whether a device may render the display
// feed. Read-only: the device must exist, present its current token,
// and hold a seat. Everything else is an access denial; the caller
// cannot distinguish an unknown device from a stale token.
func (s *DeviceService) AuthorizeDisplay(ctx context.Context, deviceID, token string) (*domain.Device, error) {
	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			return nil, domainerrors.Unauthorized("unknown device or invalid token")
		}
		return nil, fmt.Errorf("get device: %w", err)
	}

	if !device.TokenMatches(token) {
		return nil, domainerrors.Unauthorized("unknown device or invalid token")
	}
	if !device.Active {
		return nil, domainerrors.Unauthorized("device is not claimed")
	}

	return device, nil
}

// Heartbeat records device liveness and applies the staleness policy
// against the gap since the previous heartbeat: past the expiration
// threshold the device loses its seat; past the rotation threshold its
// token is rotated and the device must be re-claimed out-of-band.
// Expiration wins when both thresholds are exceeded.
func (s *DeviceService) Heartbeat(ctx context.Context, deviceID, token string) (*HeartbeatResult, error) {
	now := time.Now()

	var result HeartbeatResult
	err := s.mutateDevices(ctx, func(devices map[string]*domain.Device) error {
		result = HeartbeatResult{}

		device, ok := devices[deviceID]
		if !ok || !device.TokenMatches(token) {
			return domainerrors.Unauthorized("unknown device or invalid token")
		}

		gap := now.Sub(device.LastSeen)
		device.Touch(now)

		switch {
		case gap > s.cfg.ExpirationThreshold:
			device.Active = false
			result.Expired = true
		case gap > s.cfg.RotationThreshold:
			newToken, err := s.tokens.Issue()
			if err != nil {
				return fmt.Errorf("issue device token: %w", err)
			}
			device.AuthToken = newToken
			result.Rotated = true
		}

		result.Device = device
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		switch {
		case result.Expired:
			s.logger.Info("device expired after prolonged silence", "device_id", deviceID)
		case result.Rotated:
			s.logger.Info("device token rotated on stale heartbeat", "device_id", deviceID)
		}
	}
	return &result, nil
}

// RotateToken unconditionally replaces the device's auth token. The
// old token is invalid the moment the write commits; any session still
// holding it is cut off.
func (s *DeviceService) RotateToken(ctx context.Context, deviceID string) (string, error) {
	var newToken string
	err := s.mutateDevices(ctx, func(devices map[string]*domain.Device) error {
		device, ok := devices[deviceID]
		if !ok {
			return domainerrors.NotFoundf("device %s not found", deviceID)
		}

		token, err := s.tokens.Issue()
		if err != nil {
			return fmt.Errorf("issue device token: %w", err)
		}
		device.AuthToken = token
		newToken = token
		return nil
	})
	if err != nil {
		return "", err
	}

	if s.logger != nil {
		s.logger.Info("device token rotated", "device_id", deviceID)
	}
	return newToken, nil
}

// Delete removes a device. Deleting an unknown ID is a no-op.
func (s *DeviceService) Delete(ctx context.Context, deviceID string) error {
	err := s.mutateDevices(ctx, func(devices map[string]*domain.Device) error {
		delete(devices, deviceID)
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("device removed", "device_id", deviceID)
	}
	return nil
}

// List returns all devices for the management page, active devices
// first, with the days left until each would expire if it stopped
// sending heartbeats.
func (s *DeviceService) List(ctx context.Context) ([]DeviceSummary, error) {
	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	summaries := make([]DeviceSummary, 0, len(devices))
	for _, d := range devices {
		summaries = append(summaries, DeviceSummary{
			ID:               d.ID,
			Name:             d.Name,
			ActivePlaylist:   d.ActivePlaylist,
			Active:           d.Active,
			LastSeen:         d.LastSeen,
			DaysLeft:         d.DaysLeft(now, s.cfg.ExpirationThreshold),
			LicenseType:      d.LicenseType,
			LicenseExpiresAt: d.LicenseExpiresAt,
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Active && !summaries[j].Active
	})
	return summaries, nil
}

// RenewLicense stamps the device with a fresh license term.
func (s *DeviceService) RenewLicense(ctx context.Context, deviceID, licenseType string) (*domain.Device, error) {
	if licenseType != domain.LicenseMonthly && licenseType != domain.LicenseYearly {
		return nil, domainerrors.Validationf("license_type must be %s or %s", domain.LicenseMonthly, domain.LicenseYearly)
	}

	var result *domain.Device
	err := s.mutateDevices(ctx, func(devices map[string]*domain.Device) error {
		device, ok := devices[deviceID]
		if !ok {
			return domainerrors.NotFoundf("device %s not found", deviceID)
		}
		license.Renew(device, licenseType, time.Now())
		result = device
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("device license renewed", "device_id", deviceID, "license_type", licenseType)
	}
	return result, nil
}

// AuditAndBackfill fills in missing auth tokens and license fields on
// existing device records. Present values are never overwritten. Runs
// once at startup; returns the number of devices that needed fixing.
func (s *DeviceService) AuditAndBackfill(ctx context.Context) (int, error) {
	now := time.Now()

	fixed := 0
	err := s.mutateDevices(ctx, func(devices map[string]*domain.Device) error {
		fixed = 0

		for _, device := range devices {
			changed := false

			if device.AuthToken == "" {
				token, err := s.tokens.Issue()
				if err != nil {
					return fmt.Errorf("issue device token: %w", err)
				}
				device.AuthToken = token
				changed = true
			}

			if device.LicenseType == "" {
				device.LicenseType = s.cfg.DefaultLicense
				changed = true
			}
			if device.LicenseRenewedAt == nil {
				renewed := now
				device.LicenseRenewedAt = &renewed
				changed = true
			}
			if device.LicenseExpiresAt == nil {
				expires := license.ExpiresAt(device.LicenseType, now)
				device.LicenseExpiresAt = &expires
				changed = true
			}

			if changed {
				fixed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if s.logger != nil && fixed > 0 {
		s.logger.Info("backfilled device records", "count", fixed)
	}
	return fixed, nil
}
