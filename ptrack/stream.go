package ptrack

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stream links frames one by one as they arrive (e.g. from a live frame grabber).
// Stream holds linking state between calls and must be owned by a single goroutine.
type Stream struct {
	pipeline *Pipeline
	linker   *Linker
	// First pushed frame, used for shape checks
	first    *Frame
	position int
	warnings []Warning
	closed   bool
}

// NewStream creates new Stream over pipeline's config
func (p *Pipeline) NewStream() (*Stream, error) {
	linker, err := NewLinker(p.cfg)
	if err != nil {
		return nil, err
	}
	return &Stream{
		pipeline: p,
		linker:   linker,
		warnings: make([]Warning, 0),
	}, nil
}

// Push detects features of frame and links them. Returns detections of the frame
func (s *Stream) Push(frame *Frame) ([]Detection, error) {
	if s.closed {
		return nil, errors.New("stream is closed")
	}
	position := s.position
	if frame == nil {
		return nil, &InvalidFrameError{Position: position, Index: -1, Reason: "nil frame"}
	}
	if s.first != nil && !frame.SameShape(s.first) {
		return nil, &InvalidFrameError{
			Position: position,
			Index:    frame.Index,
			Reason:   fmt.Sprintf("dimensions %dx%d differ from first frame %dx%d", frame.Width, frame.Height, s.first.Width, s.first.Height),
		}
	}
	dets, err := Detect(frame, s.pipeline.cfg)
	if err != nil {
		return nil, err
	}
	err = s.linker.Next(frame.Index, dets)
	if err != nil {
		return nil, err
	}
	if s.first == nil {
		s.first = frame
	}
	s.position++
	if len(dets) == 0 {
		w := Warning{Kind: WarningEmptyDetectionSet, Frame: frame.Index, Message: "no detections"}
		s.warnings = append(s.warnings, w)
		s.pipeline.logger.Warn("empty detection set", "frame", frame.Index)
	}
	s.pipeline.logger.Debug("frame linked", "frame", frame.Index, "detections", len(dets), "open", len(s.linker.open))
	return dets, nil
}

// Open returns trajectories which may still be extended
func (s *Stream) Open() []*Trajectory {
	return s.linker.Open()
}

// Warnings returns non-fatal conditions met so far
func (s *Stream) Warnings() []Warning {
	result := make([]Warning, len(s.warnings))
	copy(result, s.warnings)
	return result
}

// Close finalizes every trajectory and returns those passing FilterStubs
func (s *Stream) Close() []*Trajectory {
	s.closed = true
	return FilterStubs(s.linker.Finish(), s.pipeline.cfg.MinTrackLen)
}
