package audio

import (
	"errors"
	"fmt"
)

// ErrInvalidAudio marks buffers that cannot be interpreted as 16-bit PCM.
var ErrInvalidAudio = errors.New("invalid audio")

// InvalidAudioError describes why a buffer or file was rejected.
type InvalidAudioError struct {
	Source string
	Reason string
}

func (e *InvalidAudioError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid audio: %s", e.Reason)
	}
	return fmt.Sprintf("invalid audio %s: %s", e.Source, e.Reason)
}

func (e *InvalidAudioError) Is(target error) bool { return target == ErrInvalidAudio }

func invalid(source, reason string) error {
	return &InvalidAudioError{Source: source, Reason: reason}
}
