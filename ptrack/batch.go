package ptrack

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Batch is the materialized detection table of a frame sequence.
// It is the boundary between parallel detection and sequential linking.
type Batch struct {
	// Concatenation of per-frame detections in frame order
	Detections []Detection
	// Per-frame groups, one entry per input frame (including empty ones)
	PerFrame []FrameDetections
	// Non-fatal conditions, e.g. frames without detections
	Warnings []Warning
}

// ProcessFrames applies Detect to every frame. Frames are independent so they are processed
// by up to cfg.Workers goroutines; results are merged by frame position.
//
// Frame shapes and index ordering are checked before any detection runs: the first frame
// that disagrees with the first frame's dimensions (or does not have a strictly greater index
// than its predecessor) aborts the batch with *InvalidFrameError.
func ProcessFrames(ctx context.Context, frames []*Frame, cfg PipelineConfig) (*Batch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkSequence(frames); err != nil {
		return nil, err
	}

	perFrame := make([]FrameDetections, len(frames))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(cfg.workers())
	for i := range frames {
		i := i
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dets, err := Detect(frames[i], cfg)
			if err != nil {
				return errors.Wrapf(err, "can't detect features in frame %d", frames[i].Index)
			}
			perFrame[i] = FrameDetections{Frame: frames[i].Index, Detections: dets}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for i := range perFrame {
		total += len(perFrame[i].Detections)
	}
	batch := &Batch{
		Detections: make([]Detection, 0, total),
		PerFrame:   perFrame,
		Warnings:   make([]Warning, 0),
	}
	for i := range perFrame {
		if len(perFrame[i].Detections) == 0 {
			batch.Warnings = append(batch.Warnings, Warning{
				Kind:    WarningEmptyDetectionSet,
				Frame:   perFrame[i].Frame,
				Message: "no detections",
			})
		}
		batch.Detections = append(batch.Detections, perFrame[i].Detections...)
	}
	return batch, nil
}

func checkSequence(frames []*Frame) error {
	if len(frames) == 0 {
		return nil
	}
	for i, frame := range frames {
		if frame == nil {
			return &InvalidFrameError{Position: i, Index: -1, Reason: "nil frame"}
		}
		if err := frame.check(); err != nil {
			return &InvalidFrameError{Position: i, Index: frame.Index, Reason: err.Error()}
		}
		if i == 0 {
			continue
		}
		if !frame.SameShape(frames[0]) {
			return &InvalidFrameError{
				Position: i,
				Index:    frame.Index,
				Reason:   fmt.Sprintf("dimensions %dx%d differ from first frame %dx%d", frame.Width, frame.Height, frames[0].Width, frames[0].Height),
			}
		}
		if frame.Index <= frames[i-1].Index {
			return &InvalidFrameError{
				Position: i,
				Index:    frame.Index,
				Reason:   fmt.Sprintf("index is not greater than previous index %d", frames[i-1].Index),
			}
		}
	}
	return nil
}
