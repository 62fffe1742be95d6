package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopi-signage/loopi-server/internal/domain"
)

func TestGetDevice_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.GetDevice(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestPutAndGetDevice(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	device := domain.NewDevice("dev-1", "Lobby", "welcome", "tok-1")
	require.NoError(t, store.PutDevice(ctx, device))

	loaded, err := store.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, device.ID, loaded.ID)
	assert.Equal(t, device.Name, loaded.Name)
	assert.Equal(t, device.ActivePlaylist, loaded.ActivePlaylist)
	assert.False(t, loaded.Active)
}

func TestDeleteDevice_Idempotent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-1", "", "", "tok")))

	require.NoError(t, store.DeleteDevice(ctx, "dev-1"))
	_, err := store.GetDevice(ctx, "dev-1")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	// Deleting again must not fail
	require.NoError(t, store.DeleteDevice(ctx, "dev-1"))
}

func TestListDevices_SortedByID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-b", "B", "", "t1")))
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-a", "A", "", "t2")))
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-c", "C", "", "t3")))

	devices, err := store.ListDevices(ctx)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "dev-a", devices[0].ID)
	assert.Equal(t, "dev-b", devices[1].ID)
	assert.Equal(t, "dev-c", devices[2].ID)
}

func TestUpdateDevices_MutatesInPlace(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-1", "Lobby", "", "tok")))
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-2", "Kids", "", "tok2")))

	err := store.UpdateDevices(ctx, func(devices map[string]*domain.Device) error {
		require.Len(t, devices, 2)
		devices["dev-1"].Active = true
		devices["dev-2"].Active = false
		return nil
	})
	require.NoError(t, err)

	d1, err := store.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, d1.Active)
}

func TestUpdateDevices_Rename(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	original := domain.NewDevice("dev-old", "Lobby", "welcome", "tok")
	original.Active = true
	require.NoError(t, store.PutDevice(ctx, original))

	err := store.UpdateDevices(ctx, func(devices map[string]*domain.Device) error {
		moved := devices["dev-old"]
		delete(devices, "dev-old")
		devices["dev-new"] = moved
		return nil
	})
	require.NoError(t, err)

	// Old key is gone, record moved wholesale to the new key
	_, err = store.GetDevice(ctx, "dev-old")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	moved, err := store.GetDevice(ctx, "dev-new")
	require.NoError(t, err)
	assert.Equal(t, "dev-new", moved.ID)
	assert.Equal(t, "tok", moved.AuthToken)
	assert.True(t, moved.Active)
}

func TestUpdateDevices_ErrorAbortsWrite(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.PutDevice(ctx, domain.NewDevice("dev-1", "Lobby", "", "tok")))

	err := store.UpdateDevices(ctx, func(devices map[string]*domain.Device) error {
		devices["dev-1"].Active = true
		return assert.AnError
	})
	require.Error(t, err)

	// Nothing was committed
	d, err := store.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, d.Active)
}

func TestUpdateDevices_AddsNewDevice(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	err := store.UpdateDevices(ctx, func(devices map[string]*domain.Device) error {
		devices["dev-1"] = domain.NewDevice("dev-1", "New", "", "tok")
		return nil
	})
	require.NoError(t, err)

	d, err := store.GetDevice(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "New", d.Name)
}
