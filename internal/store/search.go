package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/artfetch/internal/domain"
)

const searchPrefix = "search:"

// searchKey hashes the query key so arbitrary user input never shapes
// the Badger key space.
func searchKey(key domain.QueryKey) []byte {
	hash := sha256.Sum256([]byte(key))
	return []byte(searchPrefix + hex.EncodeToString(hash[:]))
}

// LoadSearch retrieves a cached superset.
// Returns found=false if the entry is missing or expired.
func (s *Store) LoadSearch(ctx context.Context, key domain.QueryKey) (domain.SearchEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.SearchEntry{}, false, err
	}

	var entry domain.SearchEntry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(searchKey(key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.SearchEntry{}, false, nil
	}
	if err != nil {
		return domain.SearchEntry{}, false, fmt.Errorf("get cached search: %w", err)
	}

	// Badger drops expired keys lazily; double-check against the entry.
	if entry.Expired(time.Now()) || entry.Key != key {
		return domain.SearchEntry{}, false, nil
	}

	return entry, true, nil
}

// SaveSearch stores a superset until entry.ExpiresAt.
func (s *Store) SaveSearch(ctx context.Context, entry domain.SearchEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ttl := time.Until(entry.ExpiresAt)
	if entry.ExpiresAt.IsZero() || ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cached search: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(searchKey(entry.Key), data).WithTTL(ttl))
	})
}

// DeleteSearch removes a cached superset.
func (s *Store) DeleteSearch(ctx context.Context, key domain.QueryKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(searchKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil // Idempotent
		}
		return err
	})
}

// DeleteAllSearches removes every cached superset.
func (s *Store) DeleteAllSearches(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.DropPrefix([]byte(searchPrefix)); err != nil {
		return fmt.Errorf("drop cached searches: %w", err)
	}
	return nil
}
