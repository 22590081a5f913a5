// Package aztable provides grain storage backed by Azure Table Storage.
//
// Each provider writes into a single table. The partition key combines the
// provider name and the grain type, the row key is the grain id, and the
// payload travels in a single binary column. Azure entity etags provide the
// optimistic concurrency guarantees required by grainstore.Storage.
package aztable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/silobase/silohost/pkg/grainstore"
)

// DefaultTable is the table name used when none is configured.
const DefaultTable = "GrainState"

const dataColumn = "Data"

// TableStorage is a grainstore.Storage implementation over an Azure table.
type TableStorage struct {
	client       *aztables.Client
	providerName string
}

// New creates a provider writing through the given table client.
// The provider name namespaces partition keys so that several providers can
// share one table without colliding.
func New(client *aztables.Client, providerName string) *TableStorage {
	return &TableStorage{
		client:       client,
		providerName: providerName,
	}
}

// Ensure creates the backing table if it does not exist yet.
func (s *TableStorage) Ensure(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("failed to create grain state table: %w", err)
	}
	return nil
}

func (s *TableStorage) partitionKey(grainType string) string {
	return s.providerName + "_" + grainType
}

// classify maps Azure service errors onto the grainstore taxonomy.
func classify(err error, grainType, grainID string) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return grainstore.NotFound(grainType, grainID)
		case http.StatusConflict, http.StatusPreconditionFailed:
			return grainstore.Conflict(grainType, grainID)
		}
	}
	return err
}

// encodeEntity builds the serialized table entity for a grain's state.
func (s *TableStorage) encodeEntity(grainType, grainID string, data []byte) ([]byte, error) {
	entity := aztables.EDMEntity{
		Entity: aztables.Entity{
			PartitionKey: s.partitionKey(grainType),
			RowKey:       grainID,
		},
		Properties: map[string]any{
			dataColumn: aztables.EDMBinary(data),
		},
	}

	encoded, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grain state entity: %w", err)
	}
	return encoded, nil
}

// decodeEntityData unwraps the payload column of a serialized table entity.
// Binary columns come back from the SDK as aztables.EDMBinary; a missing or
// mistyped column means the row was not written by this provider and is an
// error rather than empty state.
func decodeEntityData(raw []byte, grainType, grainID string) ([]byte, error) {
	var entity aztables.EDMEntity
	if err := json.Unmarshal(raw, &entity); err != nil {
		return nil, fmt.Errorf("failed to decode grain state entity: %w", err)
	}

	value, ok := entity.Properties[dataColumn]
	if !ok {
		return nil, fmt.Errorf("grain state entity for %s/%s has no %s column", grainType, grainID, dataColumn)
	}

	bin, ok := value.(aztables.EDMBinary)
	if !ok {
		return nil, fmt.Errorf("grain state entity for %s/%s has %s column of type %T, expected binary",
			grainType, grainID, dataColumn, value)
	}

	return []byte(bin), nil
}

// Read fetches the entity for a grain and unwraps the payload column.
func (s *TableStorage) Read(ctx context.Context, grainType, grainID string) (*grainstore.State, error) {
	resp, err := s.client.GetEntity(ctx, s.partitionKey(grainType), grainID, nil)
	if err != nil {
		return nil, classify(err, grainType, grainID)
	}

	data, err := decodeEntityData(resp.Value, grainType, grainID)
	if err != nil {
		return nil, err
	}

	return &grainstore.State{
		Data: data,
		ETag: string(resp.ETag),
	}, nil
}

// Write upserts the entity. An empty etag becomes an insert that fails on an
// existing row; a non-empty etag becomes a conditional replace.
func (s *TableStorage) Write(ctx context.Context, grainType, grainID string, data []byte, etag string) (string, error) {
	encoded, err := s.encodeEntity(grainType, grainID, data)
	if err != nil {
		return "", err
	}

	if etag == "" {
		resp, err := s.client.AddEntity(ctx, encoded, nil)
		if err != nil {
			return "", classify(err, grainType, grainID)
		}
		return string(resp.ETag), nil
	}

	resp, err := s.client.UpdateEntity(ctx, encoded, &aztables.UpdateEntityOptions{
		IfMatch:    to.Ptr(azcore.ETag(etag)),
		UpdateMode: aztables.UpdateModeReplace,
	})
	if err != nil {
		return "", classify(err, grainType, grainID)
	}

	return string(resp.ETag), nil
}

// Clear deletes the entity. Missing rows are not an error.
func (s *TableStorage) Clear(ctx context.Context, grainType, grainID string, etag string) error {
	match := azcore.ETagAny
	if etag != "" {
		match = azcore.ETag(etag)
	}

	_, err := s.client.DeleteEntity(ctx, s.partitionKey(grainType), grainID, &aztables.DeleteEntityOptions{
		IfMatch: to.Ptr(match),
	})
	if err != nil {
		classified := classify(err, grainType, grainID)
		var storeErr *grainstore.StoreError
		if errors.As(classified, &storeErr) && storeErr.Code == grainstore.ErrNotFound {
			return nil
		}
		return classified
	}

	return nil
}

// Close is a no-op; the table client is owned by the registry.
func (s *TableStorage) Close() error {
	return nil
}
