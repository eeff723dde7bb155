package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltairaLabs/VoiceDesk/pkg/testutil"
)

func sampleRecord(id string, started time.Time) *Record {
	return &Record{
		ID:           id,
		Variant:      "message",
		Status:       "succeeded",
		StartedAt:    started,
		FinishedAt:   started.Add(3 * time.Second),
		DurationMs:   2000,
		Bytes:        5000,
		Chunks:       2,
		MIMEType:     "audio/webm",
		ResponseText: "ok",
	}
}

// storeContract runs the behavior every Store must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("save and load", func(t *testing.T) {
		s := newStore(t)
		rec := sampleRecord("a", base)
		rec.MeetingID = testutil.Ptr(int64(42))
		require.NoError(t, s.Save(ctx, rec))

		got, err := s.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "ok", got.ResponseText)
		assert.True(t, base.Equal(got.StartedAt))
		require.NotNil(t, got.MeetingID)
		assert.Equal(t, int64(42), *got.MeetingID)
	})

	t.Run("load missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Load(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Save(ctx, nil), ErrInvalidRecord)
		assert.ErrorIs(t, s.Save(ctx, &Record{}), ErrInvalidID)
		_, err := s.Load(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidID)
		assert.ErrorIs(t, s.Delete(ctx, ""), ErrInvalidID)
	})

	t.Run("list newest first with limit", func(t *testing.T) {
		s := newStore(t)
		for i, id := range []string{"first", "second", "third"} {
			require.NoError(t, s.Save(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Minute))))
		}

		all, err := s.List(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "third", all[0].ID)
		assert.Equal(t, "first", all[2].ID)

		two, err := s.List(ctx, 2)
		require.NoError(t, err)
		require.Len(t, two, 2)
		assert.Equal(t, "second", two[1].ID)
	})

	t.Run("save replaces", func(t *testing.T) {
		s := newStore(t)
		rec := sampleRecord("a", base)
		require.NoError(t, s.Save(ctx, rec))
		rec.Status = "failed"
		rec.FailureKind = "network_error"
		require.NoError(t, s.Save(ctx, rec))

		all, err := s.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "network_error", all[0].FailureKind)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(ctx, sampleRecord("a", base)))
		require.NoError(t, s.Delete(ctx, "a"))
		assert.ErrorIs(t, s.Delete(ctx, "a"), ErrNotFound)

		all, err := s.List(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	rec := sampleRecord("a", time.Now())
	rec.MeetingID = testutil.Ptr(int64(1))
	require.NoError(t, s.Save(ctx, rec))

	rec.ResponseText = "mutated"
	*rec.MeetingID = 99

	got, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.ResponseText)
	assert.Equal(t, int64(1), *got.MeetingID)

	got.Status = "failed"
	again, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", again.Status)
}
