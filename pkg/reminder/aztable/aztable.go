// Package aztable provides a reminder table backed by Azure Table Storage.
//
// One entity per registration: partition key is the grain id, row key the
// reminder name. Due time and period are stored as RFC 3339 text and
// nanoseconds respectively so the rows stay readable in storage explorers.
package aztable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/silobase/silohost/pkg/reminder"
)

// DefaultTable is the reminder table name.
const DefaultTable = "Reminders"

const (
	colDueAt  = "DueAt"
	colPeriod = "PeriodNanos"
)

// TableStore is a reminder.Store over an Azure table.
type TableStore struct {
	client *aztables.Client
}

// New creates a reminder store writing through the given table client.
func New(client *aztables.Client) *TableStore {
	return &TableStore{client: client}
}

// Ensure creates the reminder table if it does not exist yet.
func (s *TableStore) Ensure(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("failed to create reminder table: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

// encode builds the serialized reminder row. The period is annotated as
// Edm.Int64 so small nanosecond counts do not come back as a narrower
// numeric type on read.
func encode(r reminder.Reminder) ([]byte, error) {
	entity := aztables.EDMEntity{
		Entity: aztables.Entity{
			PartitionKey: r.GrainID,
			RowKey:       r.Name,
		},
		Properties: map[string]any{
			colDueAt:  r.DueAt.UTC().Format(time.RFC3339Nano),
			colPeriod: aztables.EDMInt64(r.Period.Nanoseconds()),
		},
	}

	encoded, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reminder entity: %w", err)
	}
	return encoded, nil
}

// Upsert creates or replaces a registration.
func (s *TableStore) Upsert(ctx context.Context, r reminder.Reminder) (string, error) {
	encoded, err := encode(r)
	if err != nil {
		return "", err
	}

	resp, err := s.client.UpsertEntity(ctx, encoded, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeReplace,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upsert reminder %q for grain %q: %w", r.Name, r.GrainID, err)
	}

	return string(resp.ETag), nil
}

func decode(raw []byte) (reminder.Reminder, error) {
	var entity aztables.EDMEntity
	if err := json.Unmarshal(raw, &entity); err != nil {
		return reminder.Reminder{}, fmt.Errorf("failed to decode reminder entity: %w", err)
	}

	r := reminder.Reminder{
		GrainID: entity.PartitionKey,
		Name:    entity.RowKey,
	}

	if due, ok := entity.Properties[colDueAt].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, due); err == nil {
			r.DueAt = t
		}
	}
	// Rows written by this store carry an Edm.Int64 annotation; the other
	// cases cover rows written before the annotation, where the service
	// hands back whatever numeric width the value happens to fit.
	switch period := entity.Properties[colPeriod].(type) {
	case aztables.EDMInt64:
		r.Period = time.Duration(period)
	case int64:
		r.Period = time.Duration(period)
	case int32:
		r.Period = time.Duration(period)
	case float64:
		r.Period = time.Duration(int64(period))
	}

	return r, nil
}

// Get returns a single registration.
func (s *TableStore) Get(ctx context.Context, grainID, name string) (*reminder.Reminder, error) {
	resp, err := s.client.GetEntity(ctx, grainID, name, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, &reminder.NotFoundError{GrainID: grainID, Name: name}
		}
		return nil, fmt.Errorf("failed to get reminder %q for grain %q: %w", name, grainID, err)
	}

	r, err := decode(resp.Value)
	if err != nil {
		return nil, err
	}
	r.ETag = string(resp.ETag)

	return &r, nil
}

// Remove deletes a registration. Missing rows are not an error.
func (s *TableStore) Remove(ctx context.Context, grainID, name string) error {
	_, err := s.client.DeleteEntity(ctx, grainID, name, &aztables.DeleteEntityOptions{
		IfMatch: to.Ptr(azcore.ETagAny),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to remove reminder %q for grain %q: %w", name, grainID, err)
	}
	return nil
}

// List returns all registrations for one grain.
func (s *TableStore) List(ctx context.Context, grainID string) ([]reminder.Reminder, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", grainID)
	pager := s.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Filter: to.Ptr(filter),
	})

	var out []reminder.Reminder
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list reminders for grain %q: %w", grainID, err)
		}
		for _, raw := range page.Entities {
			r, err := decode(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}

	return out, nil
}

// Close is a no-op; the table client is owned by the registry.
func (s *TableStore) Close() error {
	return nil
}
