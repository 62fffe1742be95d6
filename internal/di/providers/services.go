package providers

import (
	"github.com/samber/do/v2"

	"github.com/loopi-signage/loopi-server/internal/auth"
	"github.com/loopi-signage/loopi-server/internal/config"
	"github.com/loopi-signage/loopi-server/internal/logger"
	"github.com/loopi-signage/loopi-server/internal/ratelimit"
	"github.com/loopi-signage/loopi-server/internal/service"
)

// ProvideTokenService provides the device token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	return auth.NewTokenService(), nil
}

// ProvideDeviceService provides the device authorization service.
func ProvideDeviceService(i do.Injector) (*service.DeviceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewDeviceService(storeHandle.Store, tokenService, cfg.Device, log.Logger), nil
}

// ProvidePlaylistService provides the playlist service.
func ProvidePlaylistService(i do.Injector) (*service.PlaylistService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPlaylistService(storeHandle.Store, log.Logger), nil
}

// ProvideMediaService provides the media metadata service.
func ProvideMediaService(i do.Injector) (*service.MediaService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	deviceService := do.MustInvoke[*service.DeviceService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMediaService(storeHandle.Store, deviceService, log.Logger), nil
}

// ProvideRateLimiter provides the per-device rate limiter for claim and
// heartbeat endpoints.
func ProvideRateLimiter(i do.Injector) (*ratelimit.KeyedRateLimiter, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return ratelimit.New(cfg.RateLimit.ClaimRPS, cfg.RateLimit.ClaimBurst), nil
}
