package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/loopi-signage/loopi-server/internal/logger"
	"github.com/loopi-signage/loopi-server/internal/service"
)

// RunStartupBackfills repairs legacy records at boot: devices missing
// tokens or license fields, and playlists referenced by media metadata
// but never created.
func RunStartupBackfills(i do.Injector) {
	log := do.MustInvoke[*logger.Logger](i)
	deviceService := do.MustInvoke[*service.DeviceService](i)
	playlistService := do.MustInvoke[*service.PlaylistService](i)

	ctx := context.Background()

	fixed, err := deviceService.AuditAndBackfill(ctx)
	if err != nil {
		log.Error("Device audit failed", "error", err)
	} else if fixed > 0 {
		log.Info("Backfilled device records", "fixed", fixed)
	}

	created, err := playlistService.BackfillFromMetadata(ctx)
	if err != nil {
		log.Error("Playlist backfill failed", "error", err)
	} else if len(created) > 0 {
		log.Info("Created playlists from media metadata", "playlists", created)
	}
}
