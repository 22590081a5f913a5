// Package aztable provides membership backed by Azure Table Storage.
//
// The membership table holds one entity per silo: partition key is the
// cluster id, row key the silo name. Announce is an unconditional upsert,
// which is sufficient because each silo only writes its own row.
package aztable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/silobase/silohost/pkg/membership"
)

// DefaultTable is the membership table name.
const DefaultTable = "SiloInstances"

const (
	colAddress   = "Address"
	colStatus    = "Status"
	colStartedAt = "StartedAt"
)

// TableProvider is a membership.Provider over an Azure table.
type TableProvider struct {
	client    *aztables.Client
	clusterID string
}

// New creates a provider scoped to one cluster id.
func New(client *aztables.Client, clusterID string) *TableProvider {
	return &TableProvider{
		client:    client,
		clusterID: clusterID,
	}
}

// Ensure creates the membership table if it does not exist yet.
func (p *TableProvider) Ensure(ctx context.Context) error {
	_, err := p.client.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("failed to create membership table: %w", err)
	}
	return nil
}

// encodeEntry builds the serialized membership row for a silo. The Address
// column is written only when the endpoint is set: cloud-backed silos may
// announce before the runtime assigns one, and a placeholder value would
// poison every later Snapshot.
func encodeEntry(clusterID string, entry membership.Entry) ([]byte, error) {
	startedAt := entry.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	props := map[string]any{
		colStatus:    string(entry.Status),
		colStartedAt: startedAt.UTC().Format(time.RFC3339),
	}
	if entry.Address.IsValid() {
		props[colAddress] = entry.Address.String()
	}

	entity := aztables.EDMEntity{
		Entity: aztables.Entity{
			PartitionKey: clusterID,
			RowKey:       entry.SiloName,
		},
		Properties: props,
	}

	encoded, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode membership entity: %w", err)
	}
	return encoded, nil
}

// decodeEntry parses one membership row. An absent Address column leaves the
// endpoint unset; a present but unparsable one is an error.
func decodeEntry(raw []byte) (membership.Entry, error) {
	var entity aztables.EDMEntity
	if err := json.Unmarshal(raw, &entity); err != nil {
		return membership.Entry{}, fmt.Errorf("failed to decode membership entity: %w", err)
	}

	entry := membership.Entry{SiloName: entity.RowKey}

	if addr, ok := entity.Properties[colAddress].(string); ok && addr != "" {
		parsed, err := netip.ParseAddrPort(addr)
		if err != nil {
			return membership.Entry{}, fmt.Errorf("membership row %q has invalid address %q: %w", entity.RowKey, addr, err)
		}
		entry.Address = parsed
	}
	if status, ok := entity.Properties[colStatus].(string); ok {
		entry.Status = membership.Status(status)
	}
	if started, ok := entity.Properties[colStartedAt].(string); ok {
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			entry.StartedAt = t
		}
	}

	return entry, nil
}

// Announce upserts this silo's membership row.
func (p *TableProvider) Announce(ctx context.Context, entry membership.Entry) error {
	encoded, err := encodeEntry(p.clusterID, entry)
	if err != nil {
		return err
	}

	_, err = p.client.UpsertEntity(ctx, encoded, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeReplace,
	})
	if err != nil {
		return fmt.Errorf("failed to announce silo %q: %w", entry.SiloName, err)
	}

	return nil
}

// Snapshot lists all membership rows for the cluster.
func (p *TableProvider) Snapshot(ctx context.Context) ([]membership.Entry, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", p.clusterID)
	pager := p.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Filter: to.Ptr(filter),
	})

	var entries []membership.Entry
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list membership entities: %w", err)
		}

		for _, raw := range page.Entities {
			entry, err := decodeEntry(raw)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// Close is a no-op; the table client is owned by the registry.
func (p *TableProvider) Close() error {
	return nil
}
