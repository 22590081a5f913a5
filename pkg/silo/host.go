package silo

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"time"

	"github.com/silobase/silohost/internal/logger"
	"github.com/silobase/silohost/pkg/membership"
	"github.com/silobase/silohost/pkg/membership/local"
)

// initializer is implemented by providers that need backend resources
// (tables, containers) created before first use.
type initializer interface {
	Ensure(ctx context.Context) error
}

// HostConfig carries the identity of the local silo.
type HostConfig struct {
	SiloName  string
	ClusterID string
	ServiceID string
}

// Host is the silo host shell: it owns the populated registry, announces the
// local silo through the membership provider, and tears providers down on
// shutdown. The actor runtime proper sits above it and is out of scope.
type Host struct {
	cfg      HostConfig
	registry *Registry
}

// NewHost wraps a resolved registry.
func NewHost(cfg HostConfig, reg *Registry) (*Host, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if reg.Membership() == nil {
		return nil, fmt.Errorf("no membership provider configured")
	}
	if cfg.SiloName == "" {
		cfg.SiloName = fmt.Sprintf("silo-%d", time.Now().Unix())
	}

	return &Host{cfg: cfg, registry: reg}, nil
}

// Registry exposes the host's service registry.
func (h *Host) Registry() *Registry {
	return h.registry
}

// Run announces the silo, then blocks until ctx is cancelled and shuts the
// providers down.
func (h *Host) Run(ctx context.Context) error {
	if err := h.start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return h.shutdown()
}

func (h *Host) start(ctx context.Context) error {
	logger.Info("Starting silo %q (cluster: %s, service: %s)",
		h.cfg.SiloName, h.cfg.ClusterID, h.cfg.ServiceID)

	// Create backing tables/containers for providers that need them.
	if err := h.ensureProviders(ctx); err != nil {
		return err
	}

	entry := membership.Entry{
		SiloName:  h.cfg.SiloName,
		Status:    membership.StatusActive,
		StartedAt: time.Now(),
		Address:   h.localEndpoint(),
	}
	if err := h.registry.Membership().Announce(ctx, entry); err != nil {
		return fmt.Errorf("failed to announce silo: %w", err)
	}

	names := h.registry.GrainStorageNames()
	sort.Strings(names)
	for _, name := range names {
		logger.Info("  Grain storage provider: %s", name)
	}
	if h.registry.RemindersEnabled() {
		logger.Info("  Reminders: enabled")
	}

	logger.Info("Silo %q is up", h.cfg.SiloName)
	return nil
}

func (h *Host) ensureProviders(ctx context.Context) error {
	if init, ok := h.registry.Membership().(initializer); ok {
		if err := init.Ensure(ctx); err != nil {
			return fmt.Errorf("membership provider initialization failed: %w", err)
		}
	}

	for _, name := range h.registry.GrainStorageNames() {
		storage, _ := h.registry.GrainStorage(name)
		if init, ok := storage.(initializer); ok {
			if err := init.Ensure(ctx); err != nil {
				return fmt.Errorf("grain storage %q initialization failed: %w", name, err)
			}
		}
	}

	if store := h.registry.ReminderStore(); store != nil {
		if init, ok := store.(initializer); ok {
			if err := init.Ensure(ctx); err != nil {
				return fmt.Errorf("reminder store initialization failed: %w", err)
			}
		}
	}

	return nil
}

// localEndpoint returns the silo endpoint when known (local membership);
// cloud membership rows are announced without it until the runtime assigns
// one.
func (h *Host) localEndpoint() netip.AddrPort {
	if lp, ok := h.registry.Membership().(*local.LocalProvider); ok {
		return lp.Endpoint()
	}
	return netip.AddrPort{}
}

func (h *Host) shutdown() error {
	logger.Info("Shutting down silo %q", h.cfg.SiloName)

	var firstErr error

	if store := h.registry.ReminderStore(); store != nil {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close reminder store: %w", err)
		}
	}

	for _, name := range h.registry.GrainStorageNames() {
		storage, _ := h.registry.GrainStorage(name)
		if err := storage.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close grain storage %q: %w", name, err)
		}
	}

	if err := h.registry.Membership().Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to close membership provider: %w", err)
	}

	logger.Info("Silo %q stopped", h.cfg.SiloName)
	return firstErr
}
