// Package badger provides a BadgerDB-backed persistent grain storage backend.
//
// Records are stored under "grain/<type>/<id>" as JSON envelopes carrying the
// payload and a monotonically increasing version used as the etag. All etag
// checks run inside a single read-write transaction, so concurrent writers on
// the same grain serialize through Badger.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/silobase/silohost/pkg/grainstore"
)

// BadgerStorage is a durable grainstore.Storage implementation.
type BadgerStorage struct {
	db *badger.DB
}

// envelope is the on-disk record format.
type envelope struct {
	Version uint64 `json:"version"`
	Data    []byte `json:"data"`
}

// Open opens (or creates) a Badger database at path.
func Open(path string) (*BadgerStorage, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %q: %w", path, err)
	}

	return &BadgerStorage{db: db}, nil
}

func keyGrain(grainType, grainID string) []byte {
	return []byte("grain/" + grainType + "/" + grainID)
}

func formatVersion(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// Read returns the stored state for a grain.
func (s *BadgerStorage) Read(ctx context.Context, grainType, grainID string) (*grainstore.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var state *grainstore.State

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyGrain(grainType, grainID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return grainstore.NotFound(grainType, grainID)
		}
		if err != nil {
			return fmt.Errorf("failed to read grain state: %w", err)
		}

		return item.Value(func(val []byte) error {
			var env envelope
			if err := json.Unmarshal(val, &env); err != nil {
				return fmt.Errorf("failed to decode grain state: %w", err)
			}
			state = &grainstore.State{
				Data: append([]byte(nil), env.Data...),
				ETag: formatVersion(env.Version),
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// Write persists new state under the grain key, enforcing etag semantics.
func (s *BadgerStorage) Write(ctx context.Context, grainType, grainID string, data []byte, etag string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var newTag string

	err := s.db.Update(func(txn *badger.Txn) error {
		key := keyGrain(grainType, grainID)

		var current *envelope
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// no existing state
		case err != nil:
			return fmt.Errorf("failed to read grain state: %w", err)
		default:
			if err := item.Value(func(val []byte) error {
				var env envelope
				if err := json.Unmarshal(val, &env); err != nil {
					return fmt.Errorf("failed to decode grain state: %w", err)
				}
				current = &env
				return nil
			}); err != nil {
				return err
			}
		}

		switch {
		case etag == "" && current != nil:
			return grainstore.Conflict(grainType, grainID)
		case etag != "" && current == nil:
			return grainstore.Conflict(grainType, grainID)
		case etag != "" && formatVersion(current.Version) != etag:
			return grainstore.Conflict(grainType, grainID)
		}

		var version uint64 = 1
		if current != nil {
			version = current.Version + 1
		}

		encoded, err := json.Marshal(envelope{Version: version, Data: data})
		if err != nil {
			return fmt.Errorf("failed to encode grain state: %w", err)
		}

		if err := txn.Set(key, encoded); err != nil {
			return fmt.Errorf("failed to write grain state: %w", err)
		}

		newTag = formatVersion(version)
		return nil
	})
	if err != nil {
		return "", err
	}

	return newTag, nil
}

// Clear removes the grain record.
func (s *BadgerStorage) Clear(ctx context.Context, grainType, grainID string, etag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := keyGrain(grainType, grainID)

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read grain state: %w", err)
		}

		if etag != "" {
			var env envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return fmt.Errorf("failed to decode grain state: %w", err)
			}
			if formatVersion(env.Version) != etag {
				return grainstore.Conflict(grainType, grainID)
			}
		}

		if err := txn.Delete(key); err != nil {
			return fmt.Errorf("failed to delete grain state: %w", err)
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}
