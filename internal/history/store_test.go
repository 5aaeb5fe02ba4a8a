package history_test

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtrack/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "ws", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := &history.Run{
		Model: "bark", Mode: "patience", Outcome: "exhausted",
		StartedAt: base, FinishedAt: base.Add(time.Minute),
		Epochs: 12, Classes: 3, BestScore: 0.42, LearningRate: 0.001, Committed: true,
	}
	require.NoError(t, store.Record(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := &history.Run{
		Model: "thud", Mode: "plateau", Outcome: "failed",
		StartedAt: base, FinishedAt: base.Add(2 * time.Minute),
		BestScore: math.Inf(1), Error: "dataset: empty",
	}
	require.NoError(t, store.Record(ctx, second))

	all, err := store.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "thud", all[0].Model)
	assert.True(t, math.IsNaN(all[0].BestScore))
	assert.Equal(t, "dataset: empty", all[0].Error)

	barks, err := store.List(ctx, "bark", 10)
	require.NoError(t, err)
	require.Len(t, barks, 1)
	got := barks[0]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, 12, got.Epochs)
	assert.InDelta(t, 0.42, got.BestScore, 1e-12)
	assert.True(t, got.Committed)
	assert.Equal(t, time.Minute, got.Duration())

	limited, err := store.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetMissingRun(t *testing.T) {
	store := openStore(t)
	run, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestRecordRequiresModel(t *testing.T) {
	store := openStore(t)
	assert.Error(t, store.Record(context.Background(), &history.Run{}))
	assert.Error(t, store.Record(context.Background(), nil))
}

func TestReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(context.Background(), &history.Run{Model: "bark", Outcome: "converged"}))
	require.NoError(t, store.Close())

	store, err = history.Open(path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(context.Background(), "bark", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestConcurrentRecords(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Record(ctx, &history.Run{Model: "bark", Outcome: "converged"}))
		}()
	}
	wg.Wait()
	runs, err := store.List(ctx, "bark", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 8)
}
