// Package grainstore defines the persistence contract for grain state.
//
// A grain storage provider is a thin adapter over a storage backend. It is
// responsible only for reading, writing and clearing the serialized state of
// a single grain, guarded by an opaque version tag (etag) so that stale
// writers lose. It is not a cache and it does not interpret the payload.
package grainstore

import (
	"context"
	"fmt"
)

// ErrorCode classifies storage failures so callers can react without string
// matching.
type ErrorCode int

const (
	// ErrUnknown is an unclassified backend failure.
	ErrUnknown ErrorCode = iota

	// ErrNotFound means no state exists for the requested grain.
	ErrNotFound

	// ErrVersionConflict means the supplied etag did not match the stored
	// version. The caller must re-read before retrying the write.
	ErrVersionConflict
)

// StoreError is the error type returned by all grain storage providers.
type StoreError struct {
	Code      ErrorCode
	Message   string
	GrainType string
	GrainID   string
}

func (e *StoreError) Error() string {
	if e.GrainType != "" || e.GrainID != "" {
		return fmt.Sprintf("%s (grain %s/%s)", e.Message, e.GrainType, e.GrainID)
	}
	return e.Message
}

// NotFound builds a StoreError with code ErrNotFound.
func NotFound(grainType, grainID string) *StoreError {
	return &StoreError{
		Code:      ErrNotFound,
		Message:   "grain state not found",
		GrainType: grainType,
		GrainID:   grainID,
	}
}

// Conflict builds a StoreError with code ErrVersionConflict.
func Conflict(grainType, grainID string) *StoreError {
	return &StoreError{
		Code:      ErrVersionConflict,
		Message:   "grain state version conflict",
		GrainType: grainType,
		GrainID:   grainID,
	}
}

// State is a versioned snapshot of a grain's persisted state.
type State struct {
	// Data is the serialized grain state. Providers treat it as opaque bytes.
	Data []byte

	// ETag identifies the stored version. It must be passed back on the next
	// Write or Clear for optimistic concurrency control. The format is
	// backend-specific.
	ETag string
}

// Storage is the contract implemented by every grain storage backend.
//
// Write semantics: an empty etag asserts "create, must not exist"; a
// non-empty etag asserts "replace exactly this version". Both violations
// surface as ErrVersionConflict. Clear with an empty etag removes
// unconditionally.
type Storage interface {
	// Read returns the current state of a grain, or a StoreError with code
	// ErrNotFound if the grain has no persisted state.
	Read(ctx context.Context, grainType, grainID string) (*State, error)

	// Write persists new state and returns the etag of the stored version.
	Write(ctx context.Context, grainType, grainID string, data []byte, etag string) (string, error)

	// Clear removes the persisted state of a grain. Clearing a grain that has
	// no state is not an error.
	Clear(ctx context.Context, grainType, grainID string, etag string) error

	// Close releases backend resources.
	Close() error
}
