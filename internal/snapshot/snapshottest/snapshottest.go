// Package snapshottest checks that a snapshot.Store honours the contract
// shared by every backend.
package snapshottest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/authbayes/internal/model"
	"github.com/hejijunhao/authbayes/internal/snapshot"
)

// SampleCounts returns a small valid window.
func SampleCounts(t testing.TB) model.Counts {
	t.Helper()
	c := model.NewCounts()
	for _, e := range []model.Event{
		{Time: "100", Key: "u1,proto", Result: model.Success},
		{Time: "101", Key: "u1,proto", Result: model.Fail},
		{Time: "102", Key: "u2,proto", Result: model.Success},
		{Time: "103", Key: "u1,proto", Result: model.Success},
	} {
		require.NoError(t, c.Add(e.Key, e.Result))
	}
	return c
}

// SampleRawLog returns a raw log with events of both outcomes.
func SampleRawLog() model.RawLog {
	return model.RawLog{
		Success: []model.Event{
			{Time: "100", Key: "u1,proto", Result: model.Success},
			{Time: "102", Key: "u2,proto", Result: model.Success},
		},
		Fail: []model.Event{
			{Time: "101", Key: "u1,proto", Result: model.Fail},
		},
	}
}

// Run exercises a fresh Store returned by open.
func Run(t *testing.T, open func(t *testing.T) snapshot.Store) {
	ctx := context.Background()

	t.Run("counts round trip", func(t *testing.T) {
		s := open(t)
		want := SampleCounts(t)
		require.NoError(t, s.SaveCounts(ctx, 3, want))

		got, err := s.LoadCounts(ctx, 3)
		require.NoError(t, err)
		assert.True(t, got.Equal(want), "got %+v, want %+v", got, want)
		assert.NoError(t, got.Validate())
	})

	t.Run("empty counts round trip", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SaveCounts(ctx, 0, model.NewCounts()))

		got, err := s.LoadCounts(ctx, 0)
		require.NoError(t, err)
		assert.Zero(t, got.Success)
		assert.Zero(t, got.Fail)
		assert.NotNil(t, got.SuccessByKey)
		assert.NotNil(t, got.FailByKey)
	})

	t.Run("save replaces earlier snapshot", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SaveCounts(ctx, 1, SampleCounts(t)))

		replacement := model.NewCounts()
		require.NoError(t, replacement.Add("only", model.Fail))
		require.NoError(t, s.SaveCounts(ctx, 1, replacement))

		got, err := s.LoadCounts(ctx, 1)
		require.NoError(t, err)
		assert.True(t, got.Equal(replacement), "got %+v", got)
	})

	t.Run("missing counts", func(t *testing.T) {
		s := open(t)
		_, err := s.LoadCounts(ctx, 42)
		require.Error(t, err)
		assert.True(t, errors.Is(err, snapshot.ErrNotFound), "error = %v", err)

		var se *snapshot.Error
		require.True(t, errors.As(err, &se))
		assert.Equal(t, 42, se.Chunk)
	})

	t.Run("raw log round trip", func(t *testing.T) {
		s := open(t)
		want := SampleRawLog()
		require.NoError(t, s.SaveRawLog(ctx, 5, want))

		got, err := s.LoadRawLog(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing raw log", func(t *testing.T) {
		s := open(t)
		_, err := s.LoadRawLog(ctx, 7)
		assert.True(t, errors.Is(err, snapshot.ErrNotFound), "error = %v", err)
	})
}
