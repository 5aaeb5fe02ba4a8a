package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrArtifactNotFound is returned when a checkpoint or catalog is missing.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrExport is returned when a portable export would be inconsistent.
	ErrExport = errors.New("portable export failed")
	// ErrCatalogMismatch is returned when a checkpoint and catalog disagree
	// on the number of classes.
	ErrCatalogMismatch = errors.New("catalog does not match model")
)

// ArtifactNotFoundError names the missing file.
type ArtifactNotFoundError struct {
	Model string
	Path  string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("model %s: artifact %s not found", e.Model, e.Path)
}

func (e *ArtifactNotFoundError) Is(target error) bool { return target == ErrArtifactNotFound }

// ExportError explains why a portable export was refused.
type ExportError struct {
	Model  string
	Reason string
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %s", e.Model, e.Reason)
}

func (e *ExportError) Is(target error) bool { return target == ErrExport }

// CatalogMismatchError reports a save whose catalog and model disagree.
type CatalogMismatchError struct {
	Model   string
	Catalog int
	Classes int
}

func (e *CatalogMismatchError) Error() string {
	return fmt.Sprintf("model %s: catalog has %d labels but model has %d outputs", e.Model, e.Catalog, e.Classes)
}

func (e *CatalogMismatchError) Is(target error) bool { return target == ErrCatalogMismatch }
