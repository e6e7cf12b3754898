package source

import (
	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/pkg/errors"
)

// ErrNoMetadata is returned by sources which have no calibration metadata
var ErrNoMetadata = errors.New("no calibration metadata")

// Stack is an in-memory sequence of frames
type Stack struct {
	frames []*ptrack.Frame
	cal    *ptrack.Calibration
}

// NewStack creates Stack. Nil calibration means there is no metadata
func NewStack(frames []*ptrack.Frame, cal *ptrack.Calibration) *Stack {
	return &Stack{
		frames: frames,
		cal:    cal,
	}
}

// Len returns number of frames
func (s *Stack) Len() int {
	return len(s.frames)
}

// Frame returns i-th frame
func (s *Stack) Frame(i int) (*ptrack.Frame, error) {
	if i < 0 || i >= len(s.frames) {
		return nil, errors.Errorf("frame position %d is out of range [0, %d)", i, len(s.frames))
	}
	return s.frames[i], nil
}

// Calibration returns calibration given on creation
func (s *Stack) Calibration() (ptrack.Calibration, error) {
	if s.cal == nil {
		return ptrack.Calibration{}, ErrNoMetadata
	}
	return *s.cal, nil
}

// Frames returns underlying frames
func (s *Stack) Frames() []*ptrack.Frame {
	return s.frames
}
