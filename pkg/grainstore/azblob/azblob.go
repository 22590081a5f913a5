// Package azblob provides grain storage backed by Azure Blob Storage.
//
// Each grain's state is one block blob named
// "<provider>/<grainType>/<grainID>" inside a shared container. Blob etags
// back the optimistic concurrency contract: empty etag uploads use an
// If-None-Match "*" condition, non-empty etags an If-Match condition.
package azblob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/silobase/silohost/pkg/grainstore"
)

// DefaultContainer is the container name used when none is configured.
const DefaultContainer = "grainstate"

// BlobStorage is a grainstore.Storage implementation over Azure blobs.
type BlobStorage struct {
	client       *azblob.Client
	container    string
	providerName string
}

// New creates a provider writing through the given service client.
func New(client *azblob.Client, container, providerName string) *BlobStorage {
	if container == "" {
		container = DefaultContainer
	}
	return &BlobStorage{
		client:       client,
		container:    container,
		providerName: providerName,
	}
}

// Ensure creates the backing container if it does not exist yet.
func (s *BlobStorage) Ensure(ctx context.Context) error {
	_, err := s.client.CreateContainer(ctx, s.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to create grain state container %q: %w", s.container, err)
	}
	return nil
}

func (s *BlobStorage) blobName(grainType, grainID string) string {
	return s.providerName + "/" + grainType + "/" + grainID
}

func classify(err error, grainType, grainID string) error {
	switch {
	case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
		return grainstore.NotFound(grainType, grainID)
	case bloberror.HasCode(err, bloberror.ConditionNotMet, bloberror.BlobAlreadyExists):
		return grainstore.Conflict(grainType, grainID)
	}
	return err
}

// Read downloads the blob and returns its content with the current etag.
func (s *BlobStorage) Read(ctx context.Context, grainType, grainID string) (*grainstore.State, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.blobName(grainType, grainID), nil)
	if err != nil {
		return nil, classify(err, grainType, grainID)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read grain state blob: %w", err)
	}

	state := &grainstore.State{Data: data}
	if resp.ETag != nil {
		state.ETag = string(*resp.ETag)
	}

	return state, nil
}

// Write uploads the blob under the etag's access condition.
func (s *BlobStorage) Write(ctx context.Context, grainType, grainID string, data []byte, etag string) (string, error) {
	conditions := &blob.ModifiedAccessConditions{}
	if etag == "" {
		conditions.IfNoneMatch = to.Ptr(azcore.ETagAny)
	} else {
		conditions.IfMatch = to.Ptr(azcore.ETag(etag))
	}

	resp, err := s.client.UploadBuffer(ctx, s.container, s.blobName(grainType, grainID), data, &azblob.UploadBufferOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: conditions,
		},
	})
	if err != nil {
		return "", classify(err, grainType, grainID)
	}

	if resp.ETag == nil {
		return "", nil
	}
	return string(*resp.ETag), nil
}

// Clear deletes the blob. Missing blobs are not an error.
func (s *BlobStorage) Clear(ctx context.Context, grainType, grainID string, etag string) error {
	var opts *azblob.DeleteBlobOptions
	if etag != "" {
		opts = &azblob.DeleteBlobOptions{
			AccessConditions: &blob.AccessConditions{
				ModifiedAccessConditions: &blob.ModifiedAccessConditions{
					IfMatch: to.Ptr(azcore.ETag(etag)),
				},
			},
		}
	}

	_, err := s.client.DeleteBlob(ctx, s.container, s.blobName(grainType, grainID), opts)
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

// Close is a no-op; the blob client is owned by the registry.
func (s *BlobStorage) Close() error {
	return nil
}
