// Package s3 provides grain storage backed by Amazon S3 (or compatible
// object stores such as MinIO and Localstack).
//
// Each grain's state is one object under "<prefix><type>/<id>". S3 offers no
// generally available compare-and-swap on overwrite, so writes are
// last-writer-wins: the object etag is reported back to callers but a stale
// etag is only rejected for create-vs-replace mismatches detectable through a
// read. Deployments that need strict fencing should prefer the table-backed
// providers.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/silobase/silohost/pkg/grainstore"
)

// S3Storage is a grainstore.Storage implementation over an S3 bucket.
type S3Storage struct {
	client    *awss3.Client
	bucket    string
	keyPrefix string
}

// Config carries the settings needed to build an S3 grain store.
type Config struct {
	Client    *awss3.Client
	Bucket    string
	KeyPrefix string
}

// New creates a provider writing through the given S3 client.
func New(cfg Config) (*S3Storage, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 grain store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 grain store: bucket is required")
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3Storage{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}, nil
}

func (s *S3Storage) objectKey(grainType, grainID string) string {
	return s.keyPrefix + grainType + "/" + grainID
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	return errors.As(err, &noKey)
}

// Read downloads the object holding the grain state.
func (s *S3Storage) Read(ctx context.Context, grainType, grainID string) (*grainstore.State, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(grainType, grainID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, grainstore.NotFound(grainType, grainID)
		}
		return nil, fmt.Errorf("failed to get grain state object: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read grain state object: %w", err)
	}

	state := &grainstore.State{Data: data}
	if out.ETag != nil {
		state.ETag = strings.Trim(*out.ETag, `"`)
	}

	return state, nil
}

// Write uploads the object. Empty-etag creates are rejected when the object
// already exists; replacement writes are last-writer-wins.
func (s *S3Storage) Write(ctx context.Context, grainType, grainID string, data []byte, etag string) (string, error) {
	key := s.objectKey(grainType, grainID)

	if etag == "" {
		// Create semantics: refuse if state already exists.
		_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err == nil {
			return "", grainstore.Conflict(grainType, grainID)
		}
	}

	out, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put grain state object: %w", err)
	}

	if out.ETag == nil {
		return "", nil
	}
	return strings.Trim(*out.ETag, `"`), nil
}

// Clear deletes the object. DeleteObject is idempotent, so a missing object
// is not an error.
func (s *S3Storage) Clear(ctx context.Context, grainType, grainID string, etag string) error {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(grainType, grainID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete grain state object: %w", err)
	}
	return nil
}

// Close is a no-op; the S3 client is owned by the registry.
func (s *S3Storage) Close() error {
	return nil
}
