// Package local provides loopback membership for single-silo development
// clusters. The membership table holds exactly the local silo, plus whatever
// entries are announced in-process.
package local

import (
	"context"
	"net/netip"
	"sync"
	"time"

	"github.com/silobase/silohost/pkg/membership"
)

// LocalProvider is an in-process membership.Provider for the "Internal"
// connection type.
type LocalProvider struct {
	mu       sync.RWMutex
	endpoint netip.AddrPort
	entries  map[string]membership.Entry
}

// New creates a local provider anchored at the given validated endpoint.
func New(endpoint netip.AddrPort) *LocalProvider {
	return &LocalProvider{
		endpoint: endpoint,
		entries:  make(map[string]membership.Entry),
	}
}

// Endpoint returns the local silo endpoint this provider was built for.
func (p *LocalProvider) Endpoint() netip.AddrPort {
	return p.endpoint
}

// Announce records the entry in the in-process table.
func (p *LocalProvider) Announce(ctx context.Context, entry membership.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}
	p.entries[entry.SiloName] = entry

	return nil
}

// Snapshot returns all announced entries.
func (p *LocalProvider) Snapshot(ctx context.Context) ([]membership.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	entries := make([]membership.Entry, 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}

	return entries, nil
}

// Close is a no-op.
func (p *LocalProvider) Close() error {
	return nil
}
