package dataset

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeClass(t *testing.T, root, class string, n int) {
	t.Helper()
	dir := filepath.Join(root, class)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i := range n {
		path := filepath.Join(dir, fmt.Sprintf("clip_%03d.dat", i))
		require.NoError(t, os.WriteFile(path, []byte{0, 0, byte(i), 0}, 0o644))
	}
}

func TestCurateCatalogIsSortedAndWeighted(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, "quiet", 2)
	writeClass(t, root, "bark", 8)
	require.NoError(t, os.WriteFile(filepath.Join(root, "bark", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".trash"), 0o755))

	result, err := NewCurator(Options{Seed: 7}).Curate(root)
	require.NoError(t, err)

	assert.Equal(t, Catalog{"bark", "quiet"}, result.Catalog)
	assert.Equal(t, []int{8, 2}, result.Counts)
	assert.InDelta(t, 10.0/16.0, result.Weights[0], 1e-12)
	assert.InDelta(t, 10.0/4.0, result.Weights[1], 1e-12)
	assert.Equal(t, 10, result.Total())
}

func TestCurateInsufficientClasses(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, "bark", 3)

	_, err := NewCurator(Options{}).Curate(root)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientClasses))
	var target *InsufficientClassesError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, 1, target.Found)
}

func TestCurateEmptyDataset(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, "bark", 0)
	writeClass(t, root, "quiet", 0)

	_, err := NewCurator(Options{}).Curate(root)
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestCurateEmptyClassGetsZeroWeight(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, "bark", 4)
	writeClass(t, root, "quiet", 0)

	result, err := NewCurator(Options{}).Curate(root)
	require.NoError(t, err)
	assert.Equal(t, Catalog{"bark", "quiet"}, result.Catalog)
	assert.Equal(t, 0.0, result.Weights[1])
	assert.False(t, math.IsInf(result.Weights[0], 0))
}

func TestCurateSplitIsStratifiedAndReproducible(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, "bark", 40)
	writeClass(t, root, "quiet", 10)

	curator := NewCurator(Options{ValidationFraction: 0.2, Seed: 42})
	first, err := curator.Curate(root)
	require.NoError(t, err)
	second, err := curator.Curate(root)
	require.NoError(t, err)
	assert.Equal(t, first.Validation, second.Validation)
	assert.Equal(t, first.Train, second.Train)

	valCounts := make([]int, 2)
	for _, s := range first.Validation {
		valCounts[s.Class]++
	}
	assert.Equal(t, []int{8, 2}, valCounts)
	fullRatio := 40.0 / 50.0
	valRatio := float64(valCounts[0]) / float64(len(first.Validation))
	assert.LessOrEqual(t, math.Abs(fullRatio-valRatio), 1.0/float64(len(first.Validation)))

	seen := make(map[string]bool)
	for _, s := range append(first.Train, first.Validation...) {
		assert.False(t, seen[s.Path], "sample %s in both partitions", s.Path)
		seen[s.Path] = true
	}
	assert.Len(t, seen, 50)
}

func TestStratifiedSplitSmallClasses(t *testing.T) {
	perClass := [][]Sample{
		{{Path: "a"}},
		{{Path: "b1"}, {Path: "b2"}},
	}
	train, validation := StratifiedSplit(perClass, 0.2, 1)
	assert.Len(t, validation, 1)
	assert.Len(t, train, 2)
}

func TestFingerprintTracksTrainingSet(t *testing.T) {
	root := t.TempDir()
	writeClass(t, root, "bark", 5)
	writeClass(t, root, "quiet", 5)

	curator := NewCurator(Options{Seed: 3})
	before, err := curator.Curate(root)
	require.NoError(t, err)
	same, err := curator.Curate(root)
	require.NoError(t, err)
	assert.Equal(t, before.Fingerprint(), same.Fingerprint())

	writeClass(t, root, "bark", 6)
	after, err := curator.Curate(root)
	require.NoError(t, err)
	assert.NotEqual(t, before.Fingerprint(), after.Fingerprint())
}

func TestCatalogRoundTrip(t *testing.T) {
	data, err := MarshalCatalog(Catalog{"bark", "quiet"})
	require.NoError(t, err)
	got, err := UnmarshalCatalog(data)
	require.NoError(t, err)
	assert.True(t, got.Equal(Catalog{"bark", "quiet"}))

	idx, ok := got.Index("quiet")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, err = UnmarshalCatalog([]byte("[]"))
	assert.Error(t, err)
}
