package preflight

import (
	"errors"
	"fmt"

	"dtrack/internal/nnet"
	"dtrack/internal/registry"
)

// ModelStatus summarizes the trained artifact of one model.
type ModelStatus struct {
	Name     string
	Trained  bool
	Classes  int
	Portable bool
	Err      error
}

// ProbeModel loads the artifact of name without keeping it.
func ProbeModel(reg *registry.Registry, name string) ModelStatus {
	status := ModelStatus{Name: name}
	artifact, err := reg.Load(name)
	if errors.Is(err, registry.ErrArtifactNotFound) {
		return status
	}
	if err != nil {
		status.Err = err
		return status
	}
	status.Trained = true
	status.Classes = artifact.Catalog.Len()
	status.Portable = artifact.PortablePath != ""
	cl, err := nnet.Load(artifact.Checkpoint)
	if err != nil {
		status.Err = err
		return status
	}
	if cl.NumClasses() != status.Classes {
		status.Err = &registry.CatalogMismatchError{Model: name, Catalog: status.Classes, Classes: cl.NumClasses()}
	}
	return status
}

// Detail renders a display-friendly summary for status output.
func (s ModelStatus) Detail() string {
	switch {
	case s.Err != nil:
		return fmt.Sprintf("unusable: %v", s.Err)
	case !s.Trained:
		return "Not trained yet"
	case s.Portable:
		return fmt.Sprintf("%d classes, onnx exported", s.Classes)
	default:
		return fmt.Sprintf("%d classes", s.Classes)
	}
}

// CheckModel reports a model's artifact. An untrained model passes; a
// corrupted one fails.
func CheckModel(reg *registry.Registry, name string) Result {
	status := ProbeModel(reg, name)
	return Result{Name: "Model (" + name + ")", Passed: status.Err == nil, Detail: status.Detail()}
}
