package local

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silobase/silohost/pkg/membership"
)

func testEndpoint(t *testing.T) netip.AddrPort {
	t.Helper()

	ep, err := netip.ParseAddrPort("127.0.0.1:11111")
	require.NoError(t, err)
	return ep
}

func TestEndpoint(t *testing.T) {
	ep := testEndpoint(t)
	p := New(ep)

	assert.Equal(t, ep, p.Endpoint())
}

func TestAnnounceAndSnapshot(t *testing.T) {
	p := New(testEndpoint(t))
	ctx := context.Background()

	entries, err := p.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = p.Announce(ctx, membership.Entry{
		SiloName: "silo-1",
		Address:  testEndpoint(t),
		Status:   membership.StatusActive,
	})
	require.NoError(t, err)

	entries, err = p.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "silo-1", entries[0].SiloName)
	assert.Equal(t, membership.StatusActive, entries[0].Status)
	assert.False(t, entries[0].StartedAt.IsZero(), "expected StartedAt to be stamped")
}

func TestAnnounceRefreshesExistingEntry(t *testing.T) {
	p := New(testEndpoint(t))
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	require.NoError(t, p.Announce(ctx, membership.Entry{
		SiloName:  "silo-1",
		Status:    membership.StatusJoining,
		StartedAt: started,
	}))
	require.NoError(t, p.Announce(ctx, membership.Entry{
		SiloName:  "silo-1",
		Status:    membership.StatusActive,
		StartedAt: started,
	}))

	entries, err := p.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, membership.StatusActive, entries[0].Status)
	assert.WithinDuration(t, started, entries[0].StartedAt, time.Second)
}

func TestCancelledContext(t *testing.T) {
	p := New(testEndpoint(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Announce(ctx, membership.Entry{SiloName: "silo-1"})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = p.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
