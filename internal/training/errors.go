package training

import (
	"errors"
	"fmt"
)

// ErrModelLocked indicates another process is training the same model.
var ErrModelLocked = errors.New("model is being trained by another process")

// ModelLockedError carries the lock file that is held.
type ModelLockedError struct {
	Model    string
	LockPath string
}

func (e *ModelLockedError) Error() string {
	return fmt.Sprintf("model %q is being trained by another process (lock %s)", e.Model, e.LockPath)
}

func (e *ModelLockedError) Is(target error) bool { return target == ErrModelLocked }

// ErrNoValidation indicates the split left nothing to evaluate on.
var ErrNoValidation = errors.New("validation set is empty")
