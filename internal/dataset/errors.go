package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientClasses is returned when fewer than two classes exist.
	ErrInsufficientClasses = errors.New("insufficient classes")
	// ErrEmptyDataset is returned when no class folder holds a sample.
	ErrEmptyDataset = errors.New("empty dataset")
)

// InsufficientClassesError reports how many classes were found under Root.
type InsufficientClassesError struct {
	Root  string
	Found int
}

func (e *InsufficientClassesError) Error() string {
	return fmt.Sprintf("%s: found %d class folder(s), need at least 2", e.Root, e.Found)
}

func (e *InsufficientClassesError) Is(target error) bool { return target == ErrInsufficientClasses }

// EmptyDatasetError reports a catalog whose folders contain no samples.
type EmptyDatasetError struct {
	Root    string
	Classes int
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s: %d class folder(s) but no audio samples", e.Root, e.Classes)
}

func (e *EmptyDatasetError) Is(target error) bool { return target == ErrEmptyDataset }
