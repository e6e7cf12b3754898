package ptrack

import (
	"context"
	"errors"
	"testing"
)

func TestProcessFramesOrder(t *testing.T) {
	frames := make([]*Frame, 8)
	for i := range frames {
		frames[i] = renderFrame(i, 40, 40, testSpot{x: 10 + float64(2*i), y: 20, amplitude: 200, sigma: 1.3})
	}
	// Frame without particles
	frames[5] = NewEmptyFrame(5, 40, 40)

	cfg := DefaultConfig()
	cfg.Workers = 3
	batch, err := ProcessFrames(context.Background(), frames, cfg)
	if err != nil {
		t.Error(err)
		return
	}
	if len(batch.PerFrame) != len(frames) {
		t.Errorf("Wrong number of frame groups: %d, expected: %d", len(batch.PerFrame), len(frames))
		return
	}
	for i, group := range batch.PerFrame {
		if group.Frame != frames[i].Index {
			t.Errorf("Group %d has frame %d, expected: %d", i, group.Frame, frames[i].Index)
		}
	}
	if len(batch.Detections) != 7 {
		t.Errorf("Wrong number of detections: %d, expected: %d", len(batch.Detections), 7)
	}
	for i := 1; i < len(batch.Detections); i++ {
		if batch.Detections[i].Frame <= batch.Detections[i-1].Frame {
			t.Errorf("Detections are not in frame order at %d", i)
		}
	}
	if len(batch.Warnings) != 1 {
		t.Errorf("Wrong number of warnings: %d, expected: %d", len(batch.Warnings), 1)
		return
	}
	if batch.Warnings[0].Kind != WarningEmptyDetectionSet || batch.Warnings[0].Frame != 5 {
		t.Errorf("Wrong warning: %s", batch.Warnings[0])
	}
}

func TestProcessFramesDimensionMismatch(t *testing.T) {
	frames := []*Frame{
		NewEmptyFrame(0, 32, 32),
		NewEmptyFrame(1, 32, 32),
		NewEmptyFrame(2, 32, 30),
	}
	_, err := ProcessFrames(context.Background(), frames, DefaultConfig())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("Dimension mismatch should give ErrInvalidFrame, got: %v", err)
		return
	}
	var frameErr *InvalidFrameError
	if !errors.As(err, &frameErr) {
		t.Errorf("Error should be *InvalidFrameError: %v", err)
		return
	}
	if frameErr.Position != 2 {
		t.Errorf("Wrong position: %d, expected: %d", frameErr.Position, 2)
	}
}

func TestProcessFramesIndexOrder(t *testing.T) {
	frames := []*Frame{
		NewEmptyFrame(0, 16, 16),
		NewEmptyFrame(2, 16, 16),
		NewEmptyFrame(2, 16, 16),
	}
	_, err := ProcessFrames(context.Background(), frames, DefaultConfig())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("Repeated frame index should give ErrInvalidFrame, got: %v", err)
	}
}

func TestProcessFramesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames := []*Frame{NewEmptyFrame(0, 16, 16), NewEmptyFrame(1, 16, 16)}
	_, err := ProcessFrames(ctx, frames, DefaultConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Canceled context should stop processing, got: %v", err)
	}
}
