// Package memory provides an in-memory grain storage backend.
//
// State lives in a mutex-guarded map and is lost on process exit. Intended
// for local development and tests, matching the "Internal" connection type.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/silobase/silohost/pkg/grainstore"
)

type record struct {
	data []byte
	etag uint64
}

// MemoryStorage is a non-durable grainstore.Storage implementation.
type MemoryStorage struct {
	mu      sync.RWMutex
	grains  map[string]*record
	nextTag uint64
}

// New creates an empty in-memory grain store.
func New() *MemoryStorage {
	return &MemoryStorage{
		grains: make(map[string]*record),
	}
}

func key(grainType, grainID string) string {
	return grainType + "/" + grainID
}

func formatTag(tag uint64) string {
	return strconv.FormatUint(tag, 10)
}

// Read returns the stored state for a grain.
func (s *MemoryStorage) Read(ctx context.Context, grainType, grainID string) (*grainstore.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.grains[key(grainType, grainID)]
	if !ok {
		return nil, grainstore.NotFound(grainType, grainID)
	}

	// Copy so callers cannot mutate stored state.
	data := make([]byte, len(rec.data))
	copy(data, rec.data)

	return &grainstore.State{Data: data, ETag: formatTag(rec.etag)}, nil
}

// Write stores new state, enforcing etag semantics.
func (s *MemoryStorage) Write(ctx context.Context, grainType, grainID string, data []byte, etag string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(grainType, grainID)
	rec, exists := s.grains[k]

	switch {
	case etag == "" && exists:
		return "", grainstore.Conflict(grainType, grainID)
	case etag != "" && !exists:
		return "", grainstore.Conflict(grainType, grainID)
	case etag != "" && formatTag(rec.etag) != etag:
		return "", grainstore.Conflict(grainType, grainID)
	}

	s.nextTag++
	stored := make([]byte, len(data))
	copy(stored, data)
	s.grains[k] = &record{data: stored, etag: s.nextTag}

	return formatTag(s.nextTag), nil
}

// Clear removes stored state. A mismatched non-empty etag is a conflict;
// clearing absent state is a no-op.
func (s *MemoryStorage) Clear(ctx context.Context, grainType, grainID string, etag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key(grainType, grainID)
	rec, exists := s.grains[k]
	if !exists {
		return nil
	}

	if etag != "" && formatTag(rec.etag) != etag {
		return grainstore.Conflict(grainType, grainID)
	}

	delete(s.grains, k)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStorage) Close() error {
	return nil
}
