package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dtrack/internal/dataset"
	"dtrack/internal/fileutil"
	"dtrack/internal/logging"
	"dtrack/internal/onnx"
	"dtrack/internal/textutil"
)

// File name suffixes inside the models directory.
const (
	CheckpointExt = ".checkpoint"
	CatalogSuffix = "_labels.json"
	PortableExt   = ".onnx"
)

// Checkpoint is anything that can snapshot itself together with its class
// count.
type Checkpoint interface {
	MarshalBinary() ([]byte, error)
	NumClasses() int
}

// Portable models can describe their forward pass as an ONNX graph.
type Portable interface {
	NumClasses() int
	PortableGraph() onnx.Graph
}

// Artifact is everything persisted for one model name.
type Artifact struct {
	Name         string
	Catalog      dataset.Catalog
	Checkpoint   []byte
	PortablePath string
}

// Registry stores model artifacts under a single directory. All writes are
// atomic; a reader never observes a partially written file.
type Registry struct {
	dir    string
	logger *slog.Logger
}

// New returns a registry rooted at dir.
func New(dir string, logger *slog.Logger) *Registry {
	return &Registry{dir: dir, logger: logging.NewComponentLogger(logger, "registry")}
}

// Dir returns the models directory.
func (r *Registry) Dir() string { return r.dir }

// CheckpointPath returns the checkpoint location for name.
func (r *Registry) CheckpointPath(name string) string {
	return filepath.Join(r.dir, name+CheckpointExt)
}

// CatalogPath returns the catalog location for name.
func (r *Registry) CatalogPath(name string) string {
	return filepath.Join(r.dir, name+CatalogSuffix)
}

// PortablePath returns the ONNX export location for name.
func (r *Registry) PortablePath(name string) string {
	return filepath.Join(r.dir, name+PortableExt)
}

// Save persists the checkpoint and its catalog, replacing earlier versions.
// The labels mirror is written first and the checkpoint, which embeds the
// catalog, last; readers trust the checkpoint, so a concurrent Load or a
// crash between the two renames never yields a mismatched pair.
func (r *Registry) Save(name string, catalog dataset.Catalog, model Checkpoint) error {
	if err := textutil.ValidateModelName(name); err != nil {
		return err
	}
	if model.NumClasses() != catalog.Len() {
		return &CatalogMismatchError{Model: name, Catalog: catalog.Len(), Classes: model.NumClasses()}
	}
	payload, err := model.MarshalBinary()
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}
	labels, err := dataset.MarshalCatalog(catalog)
	if err != nil {
		return fmt.Errorf("encode catalog for %s: %w", name, err)
	}
	checkpoint, err := encodeEnvelope(catalog, payload)
	if err != nil {
		return fmt.Errorf("encode checkpoint for %s: %w", name, err)
	}
	if err := fileutil.WriteFileAtomic(r.CatalogPath(name), labels, 0o644); err != nil {
		return fmt.Errorf("write catalog for %s: %w", name, err)
	}
	if err := fileutil.WriteFileAtomic(r.CheckpointPath(name), checkpoint, 0o644); err != nil {
		return fmt.Errorf("write checkpoint for %s: %w", name, err)
	}
	r.logger.Debug("model artifact saved",
		logging.String(logging.FieldModel, name),
		logging.Int("classes", catalog.Len()),
		logging.Int("bytes", len(payload)),
	)
	return nil
}

// Load reads the checkpoint for name together with the catalog stored in it.
// The labels file must exist; when it disagrees with the checkpoint (a save
// in progress or interrupted) the checkpoint's catalog wins.
func (r *Registry) Load(name string) (Artifact, error) {
	if err := textutil.ValidateModelName(name); err != nil {
		return Artifact{}, err
	}
	catalog, payload, err := r.readCheckpoint(name)
	if err != nil {
		return Artifact{}, err
	}
	labels, err := os.ReadFile(r.CatalogPath(name))
	if err != nil {
		return Artifact{}, r.missing(name, r.CatalogPath(name), err)
	}
	if mirror, err := dataset.UnmarshalCatalog(labels); err != nil || !mirror.Equal(catalog) {
		logging.WarnWithContext(r.logger, "labels file disagrees with checkpoint; using checkpoint catalog", "catalog_mirror_stale",
			logging.String(logging.FieldModel, name),
			logging.String("path", r.CatalogPath(name)),
			logging.String(logging.FieldImpact, "labels file is out of date until the next save"),
			logging.String(logging.FieldErrorHint, "retrain or re-export the model to refresh the labels file"),
		)
	}
	artifact := Artifact{Name: name, Catalog: catalog, Checkpoint: payload}
	if _, err := os.Stat(r.PortablePath(name)); err == nil {
		artifact.PortablePath = r.PortablePath(name)
	}
	return artifact, nil
}

// LoadCatalog returns the catalog stored with name's checkpoint.
func (r *Registry) LoadCatalog(name string) (dataset.Catalog, error) {
	catalog, _, err := r.readCheckpoint(name)
	return catalog, err
}

func (r *Registry) readCheckpoint(name string) (dataset.Catalog, []byte, error) {
	data, err := os.ReadFile(r.CheckpointPath(name))
	if err != nil {
		return nil, nil, r.missing(name, r.CheckpointPath(name), err)
	}
	catalog, payload, err := decodeEnvelope(data)
	if err != nil {
		return nil, nil, fmt.Errorf("model %s: %w", name, err)
	}
	return catalog, payload, nil
}

func (r *Registry) missing(name, path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return &ArtifactNotFoundError{Model: name, Path: path}
	}
	return fmt.Errorf("read %s: %w", path, err)
}

// ExportPortable writes an ONNX rendition of model. The model's class count
// must equal numClasses and, when a catalog was persisted for name, that
// catalog's length too.
func (r *Registry) ExportPortable(name string, model Portable, numClasses int) (string, error) {
	if err := textutil.ValidateModelName(name); err != nil {
		return "", err
	}
	if model.NumClasses() != numClasses {
		return "", &ExportError{Model: name, Reason: fmt.Sprintf("model has %d outputs, export requested %d classes", model.NumClasses(), numClasses)}
	}
	catalog, err := r.LoadCatalog(name)
	switch {
	case err == nil:
		if catalog.Len() != numClasses {
			return "", &ExportError{Model: name, Reason: fmt.Sprintf("catalog lists %d classes, export requested %d", catalog.Len(), numClasses)}
		}
	case errors.Is(err, ErrArtifactNotFound):
	default:
		return "", err
	}

	data, err := onnx.Marshal(model.PortableGraph(), onnx.Options{ProducerName: "dtrack"})
	if err != nil {
		return "", &ExportError{Model: name, Reason: err.Error()}
	}
	path := r.PortablePath(name)
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write portable model for %s: %w", name, err)
	}
	r.logger.Info("portable model exported",
		logging.String(logging.FieldModel, name),
		logging.String("path", path),
		logging.Int("classes", numClasses),
	)
	return path, nil
}

// List returns the names of models that have a checkpoint, sorted.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), CheckpointExt); ok && name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes every artifact file for name. Missing files are ignored.
func (r *Registry) Remove(name string) error {
	if err := textutil.ValidateModelName(name); err != nil {
		return err
	}
	var errs []error
	for _, path := range []string{r.CheckpointPath(name), r.CatalogPath(name), r.PortablePath(name)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
