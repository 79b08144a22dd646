package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"
)

// Store is a key/value telemetry cache with per-key TTL, backed by an
// in-memory buntdb database. It satisfies spec.md §4.2: Put/MGet,
// order-preserving, missing or expired keys resolve to nil.
type Store struct {
	db *buntdb.DB
}

// NewStore opens an in-memory buntdb instance for telemetry samples.
func NewStore() (*Store, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("open telemetry store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores sample under id with the given TTL in seconds.
func (s *Store) Put(id string, sample Sample, ttlSec int) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample for %q: %w", id, err)
	}
	return s.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(id, string(data), &buntdb.SetOptions{
			Expires: true,
			TTL:     time.Duration(ttlSec) * time.Second,
		})
		return err
	})
}

// MGet returns one *Sample per requested id, in the same order, with a
// nil entry for ids that are missing or expired.
func (s *Store) MGet(ids []string) ([]*Sample, error) {
	out := make([]*Sample, len(ids))
	err := s.db.View(func(tx *buntdb.Tx) error {
		for i, id := range ids {
			raw, err := tx.Get(id)
			if err != nil {
				if err == buntdb.ErrNotFound {
					continue
				}
				return fmt.Errorf("get %q: %w", id, err)
			}
			var sample Sample
			if err := json.Unmarshal([]byte(raw), &sample); err != nil {
				// A corrupted entry is a per-neighbor failure, not an
				// infrastructure one: skip it and keep going.
				continue
			}
			out[i] = &sample
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get is a convenience wrapper over MGet for a single id.
func (s *Store) Get(id string) (*Sample, error) {
	res, err := s.MGet([]string{id})
	if err != nil {
		return nil, err
	}
	return res[0], nil
}
