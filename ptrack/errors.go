package ptrack

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInvalidFrame is matched by every *InvalidFrameError
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrInvalidConfig is matched by every *InvalidConfigError
	ErrInvalidConfig = errors.New("invalid config")
	// ErrFrameOrder is returned by Linker when frames are not fed in strictly increasing order
	ErrFrameOrder = errors.New("frames must be linked in strictly increasing order")
)

// InvalidFrameError reports a frame that can not take part in a batch.
// It aborts the whole batch.
type InvalidFrameError struct {
	// Position of the frame inside the sequence
	Position int
	// Index of the frame (as reported by the frame itself)
	Index  int
	Reason string
}

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("invalid frame at position %d (index %d): %s", e.Position, e.Index, e.Reason)
}

func (e *InvalidFrameError) Is(target error) bool {
	return target == ErrInvalidFrame
}

// InvalidConfigError is returned when PipelineConfig violates a constraint.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// WarningKind is for classification of non-fatal pipeline conditions
type WarningKind uint16

const (
	// WarningEmptyDetectionSet means a frame produced zero detections
	WarningEmptyDetectionSet WarningKind = iota
	// WarningMetadataFallback means calibration could not be read from the source and config defaults were used
	WarningMetadataFallback
)

func (k WarningKind) String() string {
	switch k {
	case WarningEmptyDetectionSet:
		return "empty_detection_set"
	case WarningMetadataFallback:
		return "metadata_fallback"
	default:
		return "unknown"
	}
}

// Warning is a recoverable condition surfaced to the caller.
// Frame is -1 when the warning is not bound to a frame.
type Warning struct {
	Kind    WarningKind
	Frame   int
	Message string
}

func (w Warning) String() string {
	if w.Frame < 0 {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s (frame %d): %s", w.Kind, w.Frame, w.Message)
}
