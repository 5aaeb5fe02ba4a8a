package inference

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoInput is returned when an inference call carries no audio.
	ErrNoInput = errors.New("no input audio")
	// ErrUnconfiguredModels is returned when no model is available to score with.
	ErrUnconfiguredModels = errors.New("no models configured")
)

// NoInputError names the empty source.
type NoInputError struct {
	Source string
}

func (e *NoInputError) Error() string {
	if e.Source == "" {
		return ErrNoInput.Error()
	}
	return fmt.Sprintf("%s: %s", e.Source, ErrNoInput)
}

func (e *NoInputError) Is(target error) bool { return target == ErrNoInput }

// UnconfiguredModelsError lists the models that were requested but could not
// be loaded.
type UnconfiguredModelsError struct {
	Requested []string
}

func (e *UnconfiguredModelsError) Error() string {
	if len(e.Requested) == 0 {
		return ErrUnconfiguredModels.Error()
	}
	return fmt.Sprintf("%s: none of [%s] has a trained artifact", ErrUnconfiguredModels, strings.Join(e.Requested, ", "))
}

func (e *UnconfiguredModelsError) Is(target error) bool { return target == ErrUnconfiguredModels }
