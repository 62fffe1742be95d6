package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/loopi-signage/loopi-server/internal/domain"
)

// Sentinel errors for device operations.
var (
	ErrDeviceNotFound = errors.New("device not found")
)

// updateRetries bounds the number of attempts for read-modify-write
// transactions that can lose a commit race.
const updateRetries = 5

// GetDevice retrieves a device by ID.
func (s *Store) GetDevice(_ context.Context, id string) (*domain.Device, error) {
	key := []byte(devicePrefix + id)

	var device domain.Device
	if err := s.get(key, &device); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("get device: %w", err)
	}

	return &device, nil
}

// PutDevice persists a device record.
func (s *Store) PutDevice(_ context.Context, device *domain.Device) error {
	key := []byte(devicePrefix + device.ID)

	if err := s.set(key, device); err != nil {
		return fmt.Errorf("put device: %w", err)
	}
	return nil
}

// DeleteDevice removes a device. Deleting an unknown ID is a no-op.
func (s *Store) DeleteDevice(_ context.Context, id string) error {
	key := []byte(devicePrefix + id)

	if err := s.delete(key); err != nil {
		return fmt.Errorf("delete device: %w", err)
	}
	return nil
}

// ListDevices returns all devices sorted by ID.
func (s *Store) ListDevices(_ context.Context) ([]*domain.Device, error) {
	prefix := []byte(devicePrefix)
	var devices []*domain.Device

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var device domain.Device
				if err := json.Unmarshal(val, &device); err != nil {
					return fmt.Errorf("unmarshal device: %w", err)
				}
				devices = append(devices, &device)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// UpdateDevices runs fn against the full device set inside one
// transaction. fn receives every device keyed by ID and may mutate,
// add, remove, or re-key entries; the resulting set is written back
// atomically, so authorization decisions that depend on counting
// active devices cannot race each other. Retries a bounded number of
// times when a concurrent commit invalidates the read snapshot.
func (s *Store) UpdateDevices(_ context.Context, fn func(devices map[string]*domain.Device) error) error {
	prefix := []byte(devicePrefix)

	var err error
	for attempt := 0; attempt < updateRetries; attempt++ {
		err = s.db.Update(func(txn *badger.Txn) error {
			devices := make(map[string]*domain.Device)

			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix

			it := txn.NewIterator(opts)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				id := strings.TrimPrefix(string(it.Item().Key()), devicePrefix)

				valErr := it.Item().Value(func(val []byte) error {
					var device domain.Device
					if err := json.Unmarshal(val, &device); err != nil {
						return fmt.Errorf("unmarshal device %s: %w", id, err)
					}
					devices[id] = &device
					return nil
				})
				if valErr != nil {
					it.Close()
					return valErr
				}
			}
			it.Close()

			before := make([]string, 0, len(devices))
			for id := range devices {
				before = append(before, id)
			}

			if err := fn(devices); err != nil {
				return err
			}

			// Keys fn dropped (delete or rename) must go away.
			for _, id := range before {
				if _, ok := devices[id]; !ok {
					if err := txn.Delete([]byte(devicePrefix + id)); err != nil {
						return err
					}
				}
			}

			for id, device := range devices {
				device.ID = id
				if err := setInTxn(txn, []byte(devicePrefix+id), device); err != nil {
					return err
				}
			}

			return nil
		})

		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		if s.logger != nil {
			s.logger.Debug("device transaction conflict, retrying", "attempt", attempt+1)
		}
	}

	if err != nil {
		return fmt.Errorf("update devices: %w", err)
	}
	return nil
}
