// Package local provides an in-memory reminder table for single-silo
// development clusters.
package local

import (
	"context"
	"strconv"
	"sync"

	"github.com/silobase/silohost/pkg/reminder"
)

// LocalStore is an in-process reminder.Store for the "Internal" connection
// type. Registrations are lost on process exit.
type LocalStore struct {
	mu        sync.RWMutex
	reminders map[string]map[string]reminder.Reminder
	nextTag   uint64
}

// New creates an empty local reminder store.
func New() *LocalStore {
	return &LocalStore{
		reminders: make(map[string]map[string]reminder.Reminder),
	}
}

// Upsert creates or replaces a registration.
func (s *LocalStore) Upsert(ctx context.Context, r reminder.Reminder) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byName, ok := s.reminders[r.GrainID]
	if !ok {
		byName = make(map[string]reminder.Reminder)
		s.reminders[r.GrainID] = byName
	}

	s.nextTag++
	r.ETag = strconv.FormatUint(s.nextTag, 10)
	byName[r.Name] = r

	return r.ETag, nil
}

// Get returns a single registration.
func (s *LocalStore) Get(ctx context.Context, grainID, name string) (*reminder.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reminders[grainID][name]
	if !ok {
		return nil, &reminder.NotFoundError{GrainID: grainID, Name: name}
	}

	return &r, nil
}

// Remove deletes a registration if present.
func (s *LocalStore) Remove(ctx context.Context, grainID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if byName, ok := s.reminders[grainID]; ok {
		delete(byName, name)
		if len(byName) == 0 {
			delete(s.reminders, grainID)
		}
	}

	return nil
}

// List returns all registrations for one grain.
func (s *LocalStore) List(ctx context.Context, grainID string) ([]reminder.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byName := s.reminders[grainID]
	out := make([]reminder.Reminder, 0, len(byName))
	for _, r := range byName {
		out = append(out, r)
	}

	return out, nil
}

// Close is a no-op.
func (s *LocalStore) Close() error {
	return nil
}
