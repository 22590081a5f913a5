package silo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silobase/silohost/pkg/grainstore/memory"
	remlocal "github.com/silobase/silohost/pkg/reminder/local"
)

func TestNewHostRequiresRegistry(t *testing.T) {
	_, err := NewHost(HostConfig{SiloName: "silo-1"}, nil)
	assert.Error(t, err)
}

func TestNewHostRequiresMembership(t *testing.T) {
	_, err := NewHost(HostConfig{SiloName: "silo-1"}, NewRegistry())
	assert.Error(t, err)
}

func TestNewHostGeneratesSiloName(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.SetMembership(localMembership(t)))

	h, err := NewHost(HostConfig{}, reg)
	require.NoError(t, err)
	assert.NotEmpty(t, h.cfg.SiloName)
}

func TestRunAnnouncesAndShutsDown(t *testing.T) {
	provider := localMembership(t)

	reg := NewRegistry()
	require.NoError(t, reg.SetMembership(provider))
	require.NoError(t, reg.RegisterGrainStorage("default", memory.New()))
	reg.EnableReminders()
	require.NoError(t, reg.SetReminderStore(remlocal.New()))

	h, err := NewHost(HostConfig{SiloName: "silo-test", ClusterID: "dev", ServiceID: "dev"}, reg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- h.Run(ctx)
	}()

	// Wait for the announcement to land
	deadline := time.After(5 * time.Second)
	for {
		entries, err := provider.Snapshot(context.Background())
		require.NoError(t, err)
		if len(entries) == 1 {
			assert.Equal(t, "silo-test", entries[0].SiloName)
			assert.Equal(t, provider.Endpoint(), entries[0].Address)
			break
		}

		select {
		case <-deadline:
			t.Fatal("Timed out waiting for silo announcement")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for host shutdown")
	}
}
