package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/loopi-signage/loopi-server/internal/domain"
)

// Sentinel errors for media operations.
var (
	ErrMediaNotFound = errors.New("media asset not found")
)

// GetMedia retrieves a media asset's schedule by filename.
func (s *Store) GetMedia(_ context.Context, filename string) (*domain.MediaAsset, error) {
	key := []byte(mediaPrefix + filename)

	var asset domain.MediaAsset
	if err := s.get(key, &asset); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("get media asset: %w", err)
	}

	return &asset, nil
}

// PutMedia persists a media asset's schedule.
func (s *Store) PutMedia(_ context.Context, asset *domain.MediaAsset) error {
	key := []byte(mediaPrefix + asset.Filename)

	if err := s.set(key, asset); err != nil {
		return fmt.Errorf("put media asset: %w", err)
	}
	return nil
}

// DeleteMedia removes a media asset's schedule. Deleting an unknown
// filename is a no-op.
func (s *Store) DeleteMedia(_ context.Context, filename string) error {
	key := []byte(mediaPrefix + filename)

	if err := s.delete(key); err != nil {
		return fmt.Errorf("delete media asset: %w", err)
	}
	return nil
}

// ListMedia returns all media asset schedules sorted by filename.
func (s *Store) ListMedia(_ context.Context) ([]*domain.MediaAsset, error) {
	prefix := []byte(mediaPrefix)
	var assets []*domain.MediaAsset

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var asset domain.MediaAsset
				if err := json.Unmarshal(val, &asset); err != nil {
					return fmt.Errorf("unmarshal media asset: %w", err)
				}
				assets = append(assets, &asset)
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list media assets: %w", err)
	}

	sort.Slice(assets, func(i, j int) bool { return assets[i].Filename < assets[j].Filename })
	return assets, nil
}
