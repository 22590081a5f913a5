package local

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silobase/silohost/pkg/reminder"
)

func TestGetMissingReminder(t *testing.T) {
	s := New()

	_, err := s.Get(context.Background(), "counter/42", "tick")
	require.Error(t, err)

	var notFound *reminder.NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "counter/42", notFound.GrainID)
	assert.Equal(t, "tick", notFound.Name)
}

func TestUpsertAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	due := time.Now().Add(time.Hour)
	etag, err := s.Upsert(ctx, reminder.Reminder{
		GrainID: "counter/42",
		Name:    "tick",
		DueAt:   due,
		Period:  time.Minute,
	})
	require.NoError(t, err)
	require.NotEmpty(t, etag)

	r, err := s.Get(ctx, "counter/42", "tick")
	require.NoError(t, err)
	assert.Equal(t, "tick", r.Name)
	assert.Equal(t, time.Minute, r.Period)
	assert.Equal(t, etag, r.ETag)
	assert.WithinDuration(t, due, r.DueAt, time.Second)
}

func TestUpsertReplacesAndBumpsETag(t *testing.T) {
	s := New()
	ctx := context.Background()

	etag1, err := s.Upsert(ctx, reminder.Reminder{GrainID: "counter/42", Name: "tick", Period: time.Minute})
	require.NoError(t, err)

	etag2, err := s.Upsert(ctx, reminder.Reminder{GrainID: "counter/42", Name: "tick", Period: time.Hour})
	require.NoError(t, err)
	assert.NotEqual(t, etag1, etag2)

	r, err := s.Get(ctx, "counter/42", "tick")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, r.Period)
}

func TestRemove(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Removing an absent reminder is not an error
	require.NoError(t, s.Remove(ctx, "counter/42", "tick"))

	_, err := s.Upsert(ctx, reminder.Reminder{GrainID: "counter/42", Name: "tick"})
	require.NoError(t, err)

	require.NoError(t, s.Remove(ctx, "counter/42", "tick"))

	_, err = s.Get(ctx, "counter/42", "tick")
	var notFound *reminder.NotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestListReturnsOnlyOwningGrain(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.Upsert(ctx, reminder.Reminder{GrainID: "counter/42", Name: "tick"})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, reminder.Reminder{GrainID: "counter/42", Name: "tock"})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, reminder.Reminder{GrainID: "counter/43", Name: "tick"})
	require.NoError(t, err)

	reminders, err := s.List(ctx, "counter/42")
	require.NoError(t, err)
	assert.Len(t, reminders, 2)

	reminders, err = s.List(ctx, "counter/99")
	require.NoError(t, err)
	assert.Empty(t, reminders)
}
