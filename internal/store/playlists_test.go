package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopi-signage/loopi-server/internal/domain"
)

func TestCreatePlaylist_Duplicate(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreatePlaylist(ctx, domain.NewPlaylist("welcome", "#ff0000")))

	err := store.CreatePlaylist(ctx, domain.NewPlaylist("welcome", "#00ff00"))
	assert.ErrorIs(t, err, ErrPlaylistAlreadyExists)

	// The original record is untouched
	p, err := store.GetPlaylist(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", p.Color)
}

func TestGetPlaylist_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.GetPlaylist(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestDeletePlaylist_Idempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreatePlaylist(ctx, domain.NewPlaylist("welcome", "")))
	require.NoError(t, store.DeletePlaylist(ctx, "welcome"))
	require.NoError(t, store.DeletePlaylist(ctx, "welcome"))
}

func TestListPlaylists_SortedByName(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreatePlaylist(ctx, domain.NewPlaylist("zoo", "")))
	require.NoError(t, store.CreatePlaylist(ctx, domain.NewPlaylist("art", "")))

	playlists, err := store.ListPlaylists(ctx)
	require.NoError(t, err)
	require.Len(t, playlists, 2)
	assert.Equal(t, "art", playlists[0].Name)
	assert.Equal(t, "zoo", playlists[1].Name)
}

func TestRebuildAssignments_Repopulates(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreatePlaylist(ctx, domain.NewPlaylist("welcome", "")))
	require.NoError(t, store.CreatePlaylist(ctx, domain.NewPlaylist("kids", "")))

	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-1", "Lobby", "welcome", "t1")))
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-2", "Hall", "welcome", "t2")))
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-3", "Corner", "kids", "t3")))

	require.NoError(t, store.RebuildAssignments(ctx))

	welcome, err := store.GetPlaylist(ctx, "welcome")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Lobby", "Hall"}, welcome.Devices)

	kids, err := store.GetPlaylist(ctx, "kids")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Corner"}, kids.Devices)
}

func TestRebuildAssignments_ClearsStaleEntries(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// Seed a playlist with a stale cached device list
	stale := domain.NewPlaylist("welcome", "")
	stale.Devices = []string{"Ghost"}
	require.NoError(t, store.CreatePlaylist(ctx, stale))

	require.NoError(t, store.RebuildAssignments(ctx))

	welcome, err := store.GetPlaylist(ctx, "welcome")
	require.NoError(t, err)
	assert.Empty(t, welcome.Devices)
}

func TestRebuildAssignments_ReassignmentMovesDevice(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreatePlaylist(ctx, domain.NewPlaylist("welcome", "")))
	require.NoError(t, store.CreatePlaylist(ctx, domain.NewPlaylist("kids", "")))

	device := domain.NewDevice("dev-1", "Lobby", "welcome", "t1")
	require.NoError(t, store.PutDevice(ctx, device))
	require.NoError(t, store.RebuildAssignments(ctx))

	device.ActivePlaylist = "kids"
	require.NoError(t, store.PutDevice(ctx, device))
	require.NoError(t, store.RebuildAssignments(ctx))

	welcome, err := store.GetPlaylist(ctx, "welcome")
	require.NoError(t, err)
	assert.Empty(t, welcome.Devices)

	kids, err := store.GetPlaylist(ctx, "kids")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lobby"}, kids.Devices)
}

func TestRebuildAssignments_SkipsDanglingReferences(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-1", "Lobby", "deleted-playlist", "t1")))

	// Must not fail, and the dangling reference survives on the device
	require.NoError(t, store.RebuildAssignments(ctx))

	d, err := store.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "deleted-playlist", d.ActivePlaylist)
}

func TestRebuildAssignments_UnnamedDeviceUsesID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreatePlaylist(ctx, domain.NewPlaylist("welcome", "")))
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-1", "", "welcome", "t1")))

	require.NoError(t, store.RebuildAssignments(ctx))

	welcome, err := store.GetPlaylist(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-1"}, welcome.Devices)
}
