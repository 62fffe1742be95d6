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

// Sentinel errors for playlist operations.
var (
	ErrPlaylistNotFound      = errors.New("playlist not found")
	ErrPlaylistAlreadyExists = errors.New("playlist already exists")
)

// GetPlaylist retrieves a playlist by name.
func (s *Store) GetPlaylist(_ context.Context, name string) (*domain.Playlist, error) {
	key := []byte(playlistPrefix + name)

	var playlist domain.Playlist
	if err := s.get(key, &playlist); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("get playlist: %w", err)
	}

	return &playlist, nil
}

// CreatePlaylist stores a new playlist. Names are unique.
func (s *Store) CreatePlaylist(_ context.Context, playlist *domain.Playlist) error {
	key := []byte(playlistPrefix + playlist.Name)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check playlist exists: %w", err)
	}
	if exists {
		return ErrPlaylistAlreadyExists
	}

	if err := s.set(key, playlist); err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}
	return nil
}

// PutPlaylist persists a playlist record, overwriting any existing one.
func (s *Store) PutPlaylist(_ context.Context, playlist *domain.Playlist) error {
	key := []byte(playlistPrefix + playlist.Name)

	if err := s.set(key, playlist); err != nil {
		return fmt.Errorf("put playlist: %w", err)
	}
	return nil
}

// DeletePlaylist removes a playlist. Deleting an unknown name is a
// no-op. Devices referencing the playlist keep their reference; the
// assignment rebuild skips names that no longer resolve.
func (s *Store) DeletePlaylist(_ context.Context, name string) error {
	key := []byte(playlistPrefix + name)

	if err := s.delete(key); err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return nil
}

// ListPlaylists returns all playlists sorted by name.
func (s *Store) ListPlaylists(_ context.Context) ([]*domain.Playlist, error) {
	prefix := []byte(playlistPrefix)
	var playlists []*domain.Playlist

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var playlist domain.Playlist
				if err := json.Unmarshal(val, &playlist); err != nil {
					return fmt.Errorf("unmarshal playlist: %w", err)
				}
				playlists = append(playlists, &playlist)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list playlists: %w", err)
	}

	sort.Slice(playlists, func(i, j int) bool { return playlists[i].Name < playlists[j].Name })
	return playlists, nil
}

// RebuildAssignments recomputes every playlist's device list from the
// devices' active_playlist references. The whole rebuild runs in one
// transaction: clear every list, then repopulate from a consistent
// snapshot of the device set. References to playlists that no longer
// exist are skipped. The device lists are a derived cache; device
// records stay the single source of truth.
func (s *Store) RebuildAssignments(_ context.Context) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		playlists := make(map[string]*domain.Playlist)
		var devices []*domain.Device

		opts := badger.DefaultIteratorOptions

		prefix := []byte(playlistPrefix)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			name := strings.TrimPrefix(string(it.Item().Key()), playlistPrefix)

			valErr := it.Item().Value(func(val []byte) error {
				var playlist domain.Playlist
				if err := json.Unmarshal(val, &playlist); err != nil {
					return fmt.Errorf("unmarshal playlist %s: %w", name, err)
				}
				playlists[name] = &playlist
				return nil
			})
			if valErr != nil {
				it.Close()
				return valErr
			}
		}
		it.Close()

		prefix = []byte(devicePrefix)
		opts.Prefix = prefix
		it = txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			valErr := it.Item().Value(func(val []byte) error {
				var device domain.Device
				if err := json.Unmarshal(val, &device); err != nil {
					return fmt.Errorf("unmarshal device: %w", err)
				}
				devices = append(devices, &device)
				return nil
			})
			if valErr != nil {
				it.Close()
				return valErr
			}
		}
		it.Close()

		for _, playlist := range playlists {
			playlist.ClearDevices()
		}

		for _, device := range devices {
			if device.ActivePlaylist == "" {
				continue
			}
			playlist, ok := playlists[device.ActivePlaylist]
			if !ok {
				continue
			}
			playlist.Devices = append(playlist.Devices, device.DisplayName())
		}

		for name, playlist := range playlists {
			if err := setInTxn(txn, []byte(playlistPrefix+name), playlist); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("rebuild playlist assignments: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("rebuilt playlist device assignments")
	}
	return nil
}
