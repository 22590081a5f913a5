// Package reminder defines the durable reminder table contract.
//
// A reminder is a cluster-wide scheduled callback registered by a grain. The
// store only persists registrations; firing them is the runtime's job.
package reminder

import (
	"context"
	"fmt"
	"time"
)

// Reminder is one durable reminder registration.
type Reminder struct {
	// GrainID identifies the owning grain ("type/id").
	GrainID string

	// Name distinguishes multiple reminders on the same grain.
	Name string

	// DueAt is the first firing time.
	DueAt time.Time

	// Period is the repeat interval; zero means fire once.
	Period time.Duration

	// ETag is the stored version, backend-specific.
	ETag string
}

// NotFoundError is returned when a reminder registration does not exist.
type NotFoundError struct {
	GrainID string
	Name    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("reminder %q not found for grain %q", e.Name, e.GrainID)
}

// Store is the durable reminder table backend.
type Store interface {
	// Upsert creates or replaces a reminder registration and returns its new
	// etag.
	Upsert(ctx context.Context, r Reminder) (string, error)

	// Get returns a single registration or a NotFoundError.
	Get(ctx context.Context, grainID, name string) (*Reminder, error)

	// Remove deletes a registration. Removing an absent reminder is not an
	// error.
	Remove(ctx context.Context, grainID, name string) error

	// List returns all registrations for one grain.
	List(ctx context.Context, grainID string) ([]Reminder, error)

	// Close releases backend resources.
	Close() error
}
