package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopi-signage/loopi-server/internal/domain"
	domainerrors "github.com/loopi-signage/loopi-server/internal/errors"
	"github.com/loopi-signage/loopi-server/internal/store"
)

func setupPlaylistService(t *testing.T) (*PlaylistService, *store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "loopi-test-*")
	require.NoError(t, err)

	st, err := store.New(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)

	svc := NewPlaylistService(st, nil)

	cleanup := func() {
		st.Close()
		os.RemoveAll(tmpDir)
	}
	return svc, st, cleanup
}

func TestPlaylistCreate(t *testing.T) {
	svc, _, cleanup := setupPlaylistService(t)
	defer cleanup()

	playlist, err := svc.Create(context.Background(), CreatePlaylistRequest{Name: "welcome", Color: "#112233"})
	require.NoError(t, err)
	assert.Equal(t, "welcome", playlist.Name)
	assert.Equal(t, "#112233", playlist.Color)
	assert.Empty(t, playlist.Images)
}

func TestPlaylistCreate_DefaultColor(t *testing.T) {
	svc, _, cleanup := setupPlaylistService(t)
	defer cleanup()

	playlist, err := svc.Create(context.Background(), CreatePlaylistRequest{Name: "welcome"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPlaylistColor, playlist.Color)
}

func TestPlaylistCreate_Duplicate(t *testing.T) {
	svc, _, cleanup := setupPlaylistService(t)
	defer cleanup()

	ctx := context.Background()
	_, err := svc.Create(ctx, CreatePlaylistRequest{Name: "welcome"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreatePlaylistRequest{Name: "welcome"})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestPlaylistCreate_Validation(t *testing.T) {
	svc, _, cleanup := setupPlaylistService(t)
	defer cleanup()

	ctx := context.Background()

	_, err := svc.Create(ctx, CreatePlaylistRequest{Name: ""})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = svc.Create(ctx, CreatePlaylistRequest{Name: "welcome", Color: "not-a-color"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestPlaylistUpdateColor(t *testing.T) {
	svc, _, cleanup := setupPlaylistService(t)
	defer cleanup()

	ctx := context.Background()
	_, err := svc.Create(ctx, CreatePlaylistRequest{Name: "welcome"})
	require.NoError(t, err)

	updated, err := svc.UpdateColor(ctx, "welcome", UpdateColorRequest{Color: "#abcdef"})
	require.NoError(t, err)
	assert.Equal(t, "#abcdef", updated.Color)

	_, err = svc.UpdateColor(ctx, "missing", UpdateColorRequest{Color: "#abcdef"})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPlaylistSetImages_ReplacesOrder(t *testing.T) {
	svc, _, cleanup := setupPlaylistService(t)
	defer cleanup()

	ctx := context.Background()
	_, err := svc.Create(ctx, CreatePlaylistRequest{Name: "welcome"})
	require.NoError(t, err)

	updated, err := svc.SetImages(ctx, "welcome", SetImagesRequest{Images: []string{"b.png", "a.png"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b.png", "a.png"}, updated.Images)

	updated, err = svc.SetImages(ctx, "welcome", SetImagesRequest{Images: []string{"a.png"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, updated.Images)
}

func TestPlaylistDelete_RefreshesCaches(t *testing.T) {
	svc, st, cleanup := setupPlaylistService(t)
	defer cleanup()

	ctx := context.Background()
	_, err := svc.Create(ctx, CreatePlaylistRequest{Name: "welcome"})
	require.NoError(t, err)

	device := domain.NewDevice("dev-1", "Lobby", "welcome", "tok")
	require.NoError(t, st.PutDevice(ctx, device))

	require.NoError(t, svc.Delete(ctx, "welcome"))

	_, err = svc.Get(ctx, "welcome")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	// The device keeps its now-dangling reference
	d, err := st.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "welcome", d.ActivePlaylist)

	// Deleting again is a no-op
	require.NoError(t, svc.Delete(ctx, "welcome"))
}

func TestBackfillFromMetadata(t *testing.T) {
	svc, st, cleanup := setupPlaylistService(t)
	defer cleanup()

	ctx := context.Background()
	_, err := svc.Create(ctx, CreatePlaylistRequest{Name: "existing", Color: "#111111"})
	require.NoError(t, err)

	require.NoError(t, st.PutMedia(ctx, &domain.MediaAsset{
		Filename:  "promo.png",
		Start:     "2025-01-01",
		End:       "2025-12-31",
		Playlists: []string{"existing", "brand-new"},
	}))

	created, err := svc.BackfillFromMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"brand-new"}, created)

	backfilled, err := svc.Get(ctx, "brand-new")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPlaylistColor, backfilled.Color)

	// The existing playlist kept its color
	existing, err := svc.Get(ctx, "existing")
	require.NoError(t, err)
	assert.Equal(t, "#111111", existing.Color)

	// Second run creates nothing
	created, err = svc.BackfillFromMetadata(ctx)
	require.NoError(t, err)
	assert.Empty(t, created)
}
