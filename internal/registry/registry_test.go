package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dtrack/internal/dataset"
	"dtrack/internal/onnx"
)

type fakeModel struct {
	classes int
	payload string
}

func (f fakeModel) MarshalBinary() ([]byte, error) { return []byte(f.payload), nil }

func (f fakeModel) NumClasses() int { return f.classes }

func (f fakeModel) PortableGraph() onnx.Graph {
	return onnx.Graph{
		Name: "fake",
		Nodes: []onnx.Node{{
			Name: "id", OpType: "Identity", Inputs: []string{"input"}, Outputs: []string{"output"},
		}},
		Inputs:  []onnx.ValueInfo{{Name: "input", Shape: []int64{1, int64(f.classes)}}},
		Outputs: []onnx.ValueInfo{{Name: "output", Shape: []int64{1, int64(f.classes)}}},
	}
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "models"), nil)
}

func TestSaveAndLoad(t *testing.T) {
	reg := newRegistry(t)
	catalog := dataset.Catalog{"bark", "quiet"}
	require.NoError(t, reg.Save("dog", catalog, fakeModel{classes: 2, payload: "v1"}))
	require.NoError(t, reg.Save("dog", catalog, fakeModel{classes: 2, payload: "v2"}))

	artifact, err := reg.Load("dog")
	require.NoError(t, err)
	assert.Equal(t, "dog", artifact.Name)
	assert.True(t, artifact.Catalog.Equal(catalog))
	assert.Equal(t, "v2", string(artifact.Checkpoint))
	assert.Empty(t, artifact.PortablePath)

	entries, err := os.ReadDir(reg.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}
	assert.Len(t, entries, 2)
}

func TestSaveRejectsMismatchedCatalog(t *testing.T) {
	reg := newRegistry(t)
	err := reg.Save("dog", dataset.Catalog{"a", "b", "c"}, fakeModel{classes: 2})
	assert.ErrorIs(t, err, ErrCatalogMismatch)
	_, err = reg.Load("dog")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestLoadMissingArtifacts(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.Load("ghost")
	require.Error(t, err)
	var target *ArtifactNotFoundError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "ghost", target.Model)

	require.NoError(t, reg.Save("dog", dataset.Catalog{"a", "b"}, fakeModel{classes: 2}))
	require.NoError(t, os.Remove(reg.CatalogPath("dog")))
	_, err = reg.Load("dog")
	assert.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestExportPortable(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Save("dog", dataset.Catalog{"a", "b"}, fakeModel{classes: 2}))

	path, err := reg.ExportPortable("dog", fakeModel{classes: 2}, 2)
	require.NoError(t, err)
	assert.Equal(t, reg.PortablePath("dog"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	artifact, err := reg.Load("dog")
	require.NoError(t, err)
	assert.Equal(t, path, artifact.PortablePath)
}

func TestExportPortableClassCountMismatch(t *testing.T) {
	reg := newRegistry(t)

	_, err := reg.ExportPortable("dog", fakeModel{classes: 3}, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExport)
	_, statErr := os.Stat(reg.PortablePath("dog"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	require.NoError(t, reg.Save("dog", dataset.Catalog{"a", "b"}, fakeModel{classes: 2}))
	_, err = reg.ExportPortable("dog", fakeModel{classes: 3}, 3)
	assert.ErrorIs(t, err, ErrExport)
}

func TestListAndRemove(t *testing.T) {
	reg := newRegistry(t)
	names, err := reg.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	for _, name := range []string{"thud", "bark"} {
		require.NoError(t, reg.Save(name, dataset.Catalog{"a", "b"}, fakeModel{classes: 2}))
	}
	names, err = reg.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"bark", "thud"}, names)

	require.NoError(t, reg.Remove("bark"))
	require.NoError(t, reg.Remove("bark"))
	names, err = reg.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"thud"}, names)
}

func TestInvalidNames(t *testing.T) {
	reg := newRegistry(t)
	assert.Error(t, reg.Save("../escape", dataset.Catalog{"a", "b"}, fakeModel{classes: 2}))
	_, err := reg.Load("")
	assert.Error(t, err)
}

func TestLoadNeverPairsCheckpointWithForeignCatalog(t *testing.T) {
	reg := newRegistry(t)
	catalogs := []dataset.Catalog{{"bark", "quiet"}, {"bang", "nomatch"}}
	save := func(c dataset.Catalog) error {
		return reg.Save("m", c, fakeModel{classes: 2, payload: strings.Join(c, ",")})
	}
	require.NoError(t, save(catalogs[0]))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if err := save(catalogs[i%2]); err != nil {
				t.Errorf("save: %v", err)
				return
			}
		}
	}()

	for range 2000 {
		artifact, err := reg.Load("m")
		if err != nil {
			t.Errorf("load: %v", err)
			break
		}
		if got := strings.Join(artifact.Catalog, ","); got != string(artifact.Checkpoint) {
			t.Errorf("catalog %s loaded with checkpoint trained on %s", got, artifact.Checkpoint)
			break
		}
	}
	close(stop)
	wg.Wait()
}

func TestLoadPrefersCheckpointCatalogOverStaleMirror(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Save("dog", dataset.Catalog{"bark", "quiet"}, fakeModel{classes: 2, payload: "v1"}))

	// The labels mirror is written first, so an interrupted save leaves the
	// new labels next to the old checkpoint.
	stale, err := dataset.MarshalCatalog(dataset.Catalog{"bang", "nomatch"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(reg.CatalogPath("dog"), stale, 0o644))

	artifact, err := reg.Load("dog")
	require.NoError(t, err)
	assert.Equal(t, dataset.Catalog{"bark", "quiet"}, artifact.Catalog)
	assert.Equal(t, "v1", string(artifact.Checkpoint))

	catalog, err := reg.LoadCatalog("dog")
	require.NoError(t, err)
	assert.Equal(t, dataset.Catalog{"bark", "quiet"}, catalog)
}

func TestLoadRejectsCorruptCheckpoint(t *testing.T) {
	reg := newRegistry(t)
	require.NoError(t, reg.Save("dog", dataset.Catalog{"a", "b"}, fakeModel{classes: 2}))
	require.NoError(t, os.WriteFile(reg.CheckpointPath("dog"), []byte("not a checkpoint"), 0o644))

	_, err := reg.Load("dog")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrArtifactNotFound)
}
