// Package silo holds the host-side service registry and the silo host shell.
//
// The Registry is the keyed service container the configuration resolver
// populates at startup: one membership provider, named grain storage
// providers, an optional reminder store, and keyed cloud service clients
// shared by everything bound to the same connection name.
package silo

import (
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/silobase/silohost/pkg/grainstore"
	"github.com/silobase/silohost/pkg/membership"
	"github.com/silobase/silohost/pkg/reminder"
)

// Registry manages all named runtime resources of a silo host. It is safe
// for concurrent use, although in practice it is populated once during
// startup and read-only afterwards.
type Registry struct {
	mu sync.RWMutex

	membership       membership.Provider
	reminders        reminder.Store
	remindersEnabled bool
	grainStorage     map[string]grainstore.Storage

	tableClients map[string]*aztables.ServiceClient
	blobClients  map[string]*azblob.Client
	s3Clients    map[string]*awss3.Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		grainStorage: make(map[string]grainstore.Storage),
		tableClients: make(map[string]*aztables.ServiceClient),
		blobClients:  make(map[string]*azblob.Client),
		s3Clients:    make(map[string]*awss3.Client),
	}
}

// SetMembership installs the cluster membership provider.
// Returns an error if one is already installed.
func (r *Registry) SetMembership(p membership.Provider) error {
	if p == nil {
		return fmt.Errorf("cannot register nil membership provider")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.membership != nil {
		return fmt.Errorf("membership provider already registered")
	}

	r.membership = p
	return nil
}

// Membership returns the installed membership provider, or nil.
func (r *Registry) Membership() membership.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.membership
}

// RegisterGrainStorage adds a named grain storage provider.
// Returns an error if the name is already taken.
func (r *Registry) RegisterGrainStorage(name string, s grainstore.Storage) error {
	if s == nil {
		return fmt.Errorf("cannot register nil grain storage")
	}
	if name == "" {
		return fmt.Errorf("cannot register grain storage with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.grainStorage[name]; exists {
		return fmt.Errorf("grain storage %q already registered", name)
	}

	r.grainStorage[name] = s
	return nil
}

// GrainStorage looks up a named grain storage provider.
func (r *Registry) GrainStorage(name string) (grainstore.Storage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.grainStorage[name]
	return s, ok
}

// GrainStorageNames returns the registered provider names (unordered).
func (r *Registry) GrainStorageNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.grainStorage))
	for name := range r.grainStorage {
		names = append(names, name)
	}
	return names
}

// CountGrainStorage returns the number of registered storage providers.
func (r *Registry) CountGrainStorage() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.grainStorage)
}

// EnableReminders marks the reminder feature as active. The reminder store
// itself is installed separately; enabling without a store is valid only
// transiently during resolution.
func (r *Registry) EnableReminders() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remindersEnabled = true
}

// RemindersEnabled reports whether the reminder feature was activated.
func (r *Registry) RemindersEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.remindersEnabled
}

// SetReminderStore installs the reminder table backend.
// Returns an error if one is already installed.
func (r *Registry) SetReminderStore(s reminder.Store) error {
	if s == nil {
		return fmt.Errorf("cannot register nil reminder store")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.reminders != nil {
		return fmt.Errorf("reminder store already registered")
	}

	r.reminders = s
	return nil
}

// ReminderStore returns the installed reminder store, or nil.
func (r *Registry) ReminderStore() reminder.Store {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reminders
}

// EnsureTableClient returns the table service client registered under name,
// building and registering it first if absent. Registration is idempotent by
// key: all concerns bound to the same connection name share one client.
func (r *Registry) EnsureTableClient(name string, build func() (*aztables.ServiceClient, error)) (*aztables.ServiceClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.tableClients[name]; ok {
		return client, nil
	}

	client, err := build()
	if err != nil {
		return nil, err
	}

	r.tableClients[name] = client
	return client, nil
}

// TableClient looks up a keyed table service client.
func (r *Registry) TableClient(name string) (*aztables.ServiceClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.tableClients[name]
	return c, ok
}

// CountTableClients returns the number of keyed table clients.
func (r *Registry) CountTableClients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tableClients)
}

// EnsureBlobClient mirrors EnsureTableClient for blob service clients.
func (r *Registry) EnsureBlobClient(name string, build func() (*azblob.Client, error)) (*azblob.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.blobClients[name]; ok {
		return client, nil
	}

	client, err := build()
	if err != nil {
		return nil, err
	}

	r.blobClients[name] = client
	return client, nil
}

// BlobClient looks up a keyed blob service client.
func (r *Registry) BlobClient(name string) (*azblob.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.blobClients[name]
	return c, ok
}

// CountBlobClients returns the number of keyed blob clients.
func (r *Registry) CountBlobClients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobClients)
}

// EnsureS3Client mirrors EnsureTableClient for S3 clients.
func (r *Registry) EnsureS3Client(name string, build func() (*awss3.Client, error)) (*awss3.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.s3Clients[name]; ok {
		return client, nil
	}

	client, err := build()
	if err != nil {
		return nil, err
	}

	r.s3Clients[name] = client
	return client, nil
}

// S3Client looks up a keyed S3 client.
func (r *Registry) S3Client(name string) (*awss3.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.s3Clients[name]
	return c, ok
}

// CountS3Clients returns the number of keyed S3 clients.
func (r *Registry) CountS3Clients() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.s3Clients)
}
