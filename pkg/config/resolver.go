package config

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/silobase/silohost/internal/logger"
	"github.com/silobase/silohost/pkg/grainstore"
	grainaztable "github.com/silobase/silohost/pkg/grainstore/aztable"
	grainazblob "github.com/silobase/silohost/pkg/grainstore/azblob"
	grainbadger "github.com/silobase/silohost/pkg/grainstore/badger"
	grainmemory "github.com/silobase/silohost/pkg/grainstore/memory"
	grains3 "github.com/silobase/silohost/pkg/grainstore/s3"
	memberaztable "github.com/silobase/silohost/pkg/membership/aztable"
	memberlocal "github.com/silobase/silohost/pkg/membership/local"
	remaztable "github.com/silobase/silohost/pkg/reminder/aztable"
	remlocal "github.com/silobase/silohost/pkg/reminder/local"
	"github.com/silobase/silohost/pkg/silo"
)

// Section names used in resolver errors. They mirror the configuration key
// paths so an error message points straight at the offending YAML.
const (
	sectionClustering = "grains.clustering"
	sectionReminders  = "grains.reminders"
)

func sectionGrainStorage(name string) string {
	return "grains.grain_storage." + name
}

// BuildRegistry creates a fully configured silo registry from the provided
// configuration.
//
// This function orchestrates the complete resolution process:
//  1. Resolves the clustering descriptor into a membership provider
//  2. Resolves each named grain storage entry into a storage provider
//  3. Resolves the reminders descriptor into a reminder store
//
// Each step validates its descriptor, parses the backend type against the
// closed set it supports, and registers the provider plus any keyed cloud
// client it needs. Keyed client registration is idempotent per connection
// name: concerns sharing a connection name share one client.
//
// All failures are fatal: the caller is expected to abort startup. The three
// error types are ConfigurationError (missing field or connection string),
// UnsupportedBackendError (unknown type) and InvalidConnectionError
// (connection string present but unparsable).
func BuildRegistry(ctx context.Context, cfg *Config) (*silo.Registry, error) {
	logger.Debug("Resolving grain subsystem configuration")

	reg := silo.NewRegistry()

	if cfg.Grains.Clustering != nil {
		if err := resolveClustering(cfg, reg); err != nil {
			return nil, err
		}
		logger.Debug("Clustering resolved (%s)", cfg.Grains.Clustering.ConnectionType)
	}

	// Deterministic order so logs and failure points are stable across runs
	names := make([]string, 0, len(cfg.Grains.GrainStorage))
	for name := range cfg.Grains.GrainStorage {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		desc := cfg.Grains.GrainStorage[name]
		if err := resolveGrainStorage(ctx, cfg, reg, name, desc); err != nil {
			return nil, err
		}
		logger.Debug("Grain storage %q resolved (%s)", name, desc.ConnectionType)
	}

	if cfg.Grains.Reminders != nil {
		if err := resolveReminders(cfg, reg); err != nil {
			return nil, err
		}
		logger.Debug("Reminders resolved (%s)", cfg.Grains.Reminders.ConnectionType)
	}

	return reg, nil
}

// checkDescriptor enforces that both descriptor fields are present.
func checkDescriptor(section string, desc ConnectionConfig) error {
	if strings.TrimSpace(desc.ConnectionType) == "" {
		return &ConfigurationError{Section: section, Field: "connection_type"}
	}
	if strings.TrimSpace(desc.ConnectionName) == "" {
		return &ConfigurationError{Section: section, Field: "connection_name"}
	}
	return nil
}

// connectionString resolves a named connection string. A reference to a
// connection that was never defined is a configuration error, not an invalid
// connection: there is nothing to parse.
func connectionString(cfg *Config, section, name string) (string, error) {
	value, ok := cfg.ConnectionStrings[name]
	if !ok || strings.TrimSpace(value) == "" {
		return "", &ConfigurationError{
			Section: "connection_strings",
			Field:   name,
		}
	}
	return value, nil
}

// parseEndpoint parses an Internal connection string as an ip:port endpoint.
func parseEndpoint(cfg *Config, section, name string) (netip.AddrPort, error) {
	raw, err := connectionString(cfg, section, name)
	if err != nil {
		return netip.AddrPort{}, err
	}

	endpoint, err := netip.ParseAddrPort(raw)
	if err != nil {
		return netip.AddrPort{}, &InvalidConnectionError{
			Section:        section,
			ConnectionName: name,
			Err:            fmt.Errorf("expected ip:port endpoint, got %q: %w", raw, err),
		}
	}

	return endpoint, nil
}

// ensureTableClient resolves the connection string for name and registers a
// keyed table service client under it, reusing any client already registered.
func ensureTableClient(cfg *Config, reg *silo.Registry, section, name string) (*aztables.ServiceClient, error) {
	conn, err := connectionString(cfg, section, name)
	if err != nil {
		return nil, err
	}

	svc, err := reg.EnsureTableClient(name, func() (*aztables.ServiceClient, error) {
		return newTableServiceClient(conn)
	})
	if err != nil {
		return nil, &InvalidConnectionError{
			Section:        section,
			ConnectionName: name,
			Err:            err,
		}
	}

	return svc, nil
}

// resolveClustering installs the membership provider selected by the
// clustering descriptor.
func resolveClustering(cfg *Config, reg *silo.Registry) error {
	desc := *cfg.Grains.Clustering

	if err := checkDescriptor(sectionClustering, desc); err != nil {
		return err
	}

	ct, err := parseConnectionType(sectionClustering, desc.ConnectionType,
		ConnectionInternal, ConnectionAzureTables)
	if err != nil {
		return err
	}

	switch ct {
	case ConnectionInternal:
		endpoint, err := parseEndpoint(cfg, sectionClustering, desc.ConnectionName)
		if err != nil {
			return err
		}
		if err := reg.SetMembership(memberlocal.New(endpoint)); err != nil {
			return fmt.Errorf("%s: %w", sectionClustering, err)
		}

	case ConnectionAzureTables:
		svc, err := ensureTableClient(cfg, reg, sectionClustering, desc.ConnectionName)
		if err != nil {
			return err
		}
		provider := memberaztable.New(svc.NewClient(memberaztable.DefaultTable), cfg.Grains.ClusterID)
		if err := reg.SetMembership(provider); err != nil {
			return fmt.Errorf("%s: %w", sectionClustering, err)
		}
	}

	return nil
}

// resolveGrainStorage installs one named grain storage provider.
func resolveGrainStorage(ctx context.Context, cfg *Config, reg *silo.Registry, name string, desc ConnectionConfig) error {
	section := sectionGrainStorage(name)

	if err := checkDescriptor(section, desc); err != nil {
		return err
	}

	ct, err := parseConnectionType(section, desc.ConnectionType,
		ConnectionInternal, ConnectionAzureTables, ConnectionAzureBlobs,
		ConnectionBadger, ConnectionS3)
	if err != nil {
		return err
	}

	switch ct {
	case ConnectionInternal:
		return registerStorage(reg, section, name, grainmemory.New())

	case ConnectionAzureTables:
		svc, err := ensureTableClient(cfg, reg, section, desc.ConnectionName)
		if err != nil {
			return err
		}
		store := grainaztable.New(svc.NewClient(grainaztable.DefaultTable), name)
		return registerStorage(reg, section, name, store)

	case ConnectionAzureBlobs:
		conn, err := connectionString(cfg, section, desc.ConnectionName)
		if err != nil {
			return err
		}
		client, err := reg.EnsureBlobClient(desc.ConnectionName, func() (*azblob.Client, error) {
			return newBlobServiceClient(conn)
		})
		if err != nil {
			return &InvalidConnectionError{Section: section, ConnectionName: desc.ConnectionName, Err: err}
		}
		return registerStorage(reg, section, name, grainazblob.New(client, grainazblob.DefaultContainer, name))

	case ConnectionBadger:
		path, err := connectionString(cfg, section, desc.ConnectionName)
		if err != nil {
			return err
		}
		store, err := grainbadger.Open(path)
		if err != nil {
			return &InvalidConnectionError{Section: section, ConnectionName: desc.ConnectionName, Err: err}
		}
		return registerStorage(reg, section, name, store)

	case ConnectionS3:
		conn, err := connectionString(cfg, section, desc.ConnectionName)
		if err != nil {
			return err
		}
		opts, err := parseS3ConnectionString(conn)
		if err != nil {
			return &InvalidConnectionError{Section: section, ConnectionName: desc.ConnectionName, Err: err}
		}
		client, err := reg.EnsureS3Client(desc.ConnectionName, func() (*awss3.Client, error) {
			return newS3Client(ctx, opts)
		})
		if err != nil {
			return &InvalidConnectionError{Section: section, ConnectionName: desc.ConnectionName, Err: err}
		}
		store, err := grains3.New(grains3.Config{
			Client:    client,
			Bucket:    opts.Bucket,
			KeyPrefix: opts.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", section, err)
		}
		return registerStorage(reg, section, name, store)
	}

	return nil
}

func registerStorage(reg *silo.Registry, section, name string, store grainstore.Storage) error {
	if err := reg.RegisterGrainStorage(name, store); err != nil {
		return fmt.Errorf("%s: %w", section, err)
	}
	return nil
}

// resolveReminders enables the reminder feature, then installs the reminder
// store selected by the descriptor. Enablement happens first regardless of
// backend, matching the startup order the runtime expects.
func resolveReminders(cfg *Config, reg *silo.Registry) error {
	reg.EnableReminders()

	desc := *cfg.Grains.Reminders

	if err := checkDescriptor(sectionReminders, desc); err != nil {
		return err
	}

	ct, err := parseConnectionType(sectionReminders, desc.ConnectionType,
		ConnectionInternal, ConnectionAzureTables)
	if err != nil {
		return err
	}

	switch ct {
	case ConnectionInternal:
		// The endpoint must be valid even though the local store does not
		// dial it: reminders ride on the silo endpoint in local clusters.
		if _, err := parseEndpoint(cfg, sectionReminders, desc.ConnectionName); err != nil {
			return err
		}
		if err := reg.SetReminderStore(remlocal.New()); err != nil {
			return fmt.Errorf("%s: %w", sectionReminders, err)
		}

	case ConnectionAzureTables:
		svc, err := ensureTableClient(cfg, reg, sectionReminders, desc.ConnectionName)
		if err != nil {
			return err
		}
		if err := reg.SetReminderStore(remaztable.New(svc.NewClient(remaztable.DefaultTable))); err != nil {
			return fmt.Errorf("%s: %w", sectionReminders, err)
		}
	}

	return nil
}
