package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silobase/silohost/pkg/grainstore"
)

func storeErrCode(t *testing.T, err error) grainstore.ErrorCode {
	t.Helper()

	var storeErr *grainstore.StoreError
	require.True(t, errors.As(err, &storeErr), "expected StoreError, got %T: %v", err, err)
	return storeErr.Code
}

func TestReadMissingGrain(t *testing.T) {
	s := New()

	_, err := s.Read(context.Background(), "counter", "42")
	require.Error(t, err)
	assert.Equal(t, grainstore.ErrNotFound, storeErrCode(t, err))
}

func TestCreateAndRead(t *testing.T) {
	s := New()
	ctx := context.Background()

	etag, err := s.Write(ctx, "counter", "42", []byte("v1"), "")
	require.NoError(t, err)
	require.NotEmpty(t, etag)

	state, err := s.Read(ctx, "counter", "42")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), state.Data)
	assert.Equal(t, etag, state.ETag)
}

func TestCreateWhenExistsConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Write(ctx, "counter", "42", []byte("v1"), "")
	require.NoError(t, err)

	_, err = s.Write(ctx, "counter", "42", []byte("v2"), "")
	require.Error(t, err)
	assert.Equal(t, grainstore.ErrVersionConflict, storeErrCode(t, err))
}

func TestUpdateWithCurrentETag(t *testing.T) {
	s := New()
	ctx := context.Background()

	etag1, err := s.Write(ctx, "counter", "42", []byte("v1"), "")
	require.NoError(t, err)

	etag2, err := s.Write(ctx, "counter", "42", []byte("v2"), etag1)
	require.NoError(t, err)
	assert.NotEqual(t, etag1, etag2)

	state, err := s.Read(ctx, "counter", "42")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), state.Data)
}

func TestUpdateWithStaleETagConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()

	etag1, err := s.Write(ctx, "counter", "42", []byte("v1"), "")
	require.NoError(t, err)

	_, err = s.Write(ctx, "counter", "42", []byte("v2"), etag1)
	require.NoError(t, err)

	// The first etag is now stale.
	_, err = s.Write(ctx, "counter", "42", []byte("v3"), etag1)
	require.Error(t, err)
	assert.Equal(t, grainstore.ErrVersionConflict, storeErrCode(t, err))
}

func TestUpdateMissingGrainConflicts(t *testing.T) {
	s := New()

	_, err := s.Write(context.Background(), "counter", "42", []byte("v1"), "7")
	require.Error(t, err)
	assert.Equal(t, grainstore.ErrVersionConflict, storeErrCode(t, err))
}

func TestClearMissingGrainIsNoop(t *testing.T) {
	s := New()

	assert.NoError(t, s.Clear(context.Background(), "counter", "42", ""))
}

func TestClearWithStaleETagConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Write(ctx, "counter", "42", []byte("v1"), "")
	require.NoError(t, err)

	err = s.Clear(ctx, "counter", "42", "stale")
	require.Error(t, err)
	assert.Equal(t, grainstore.ErrVersionConflict, storeErrCode(t, err))
}

func TestClearUnconditionally(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Write(ctx, "counter", "42", []byte("v1"), "")
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx, "counter", "42", ""))

	_, err = s.Read(ctx, "counter", "42")
	assert.Equal(t, grainstore.ErrNotFound, storeErrCode(t, err))
}

func TestReadReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Write(ctx, "counter", "42", []byte("v1"), "")
	require.NoError(t, err)

	state, err := s.Read(ctx, "counter", "42")
	require.NoError(t, err)
	state.Data[0] = 'X'

	again, err := s.Read(ctx, "counter", "42")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), again.Data)
}

func TestGrainsAreIsolatedByTypeAndID(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Write(ctx, "counter", "42", []byte("a"), "")
	require.NoError(t, err)
	_, err = s.Write(ctx, "counter", "43", []byte("b"), "")
	require.NoError(t, err)
	_, err = s.Write(ctx, "account", "42", []byte("c"), "")
	require.NoError(t, err)

	state, err := s.Read(ctx, "account", "42")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), state.Data)
}

func TestCancelledContext(t *testing.T) {
	s := New()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Read(ctx, "counter", "42")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = s.Write(ctx, "counter", "42", []byte("v1"), "")
	assert.ErrorIs(t, err, context.Canceled)
}
