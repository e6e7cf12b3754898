package ptrack

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
)

type memorySource struct {
	frames []*Frame
	cal    Calibration
	calErr error
}

func (src *memorySource) Len() int                    { return len(src.frames) }
func (src *memorySource) Frame(i int) (*Frame, error) { return src.frames[i], nil }
func (src *memorySource) Calibration() (Calibration, error) {
	return src.cal, src.calErr
}

func linearMoverFrames(n int) []*Frame {
	frames := make([]*Frame, n)
	for i := range frames {
		frames[i] = renderFrame(i, 48, 48, testSpot{x: 12 + float64(i), y: 24, amplitude: 200, sigma: 1.5})
	}
	return frames
}

func TestPipelineLinearMover(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SearchRange = 5
	cfg.Memory = 3
	cfg.MinTrackLen = 5
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		t.Error(err)
		return
	}
	src := &memorySource{frames: linearMoverFrames(10), cal: Calibration{MicronsPerPixel: 0.2, FPS: 20}}
	result, err := pipeline.Run(context.Background(), src)
	if err != nil {
		t.Error(err)
		return
	}
	if len(result.Filtered) != 1 {
		t.Errorf("Wrong number of trajectories: %d, expected: %d", len(result.Filtered), 1)
		return
	}
	traj := result.Filtered[0]
	if traj.Len() != 10 || traj.FirstFrame() != 0 || traj.LastFrame() != 9 {
		t.Errorf("Trajectory should span all 10 frames, got %d detections in [%d, %d]", traj.Len(), traj.FirstFrame(), traj.LastFrame())
	}
	if len(result.Table) != 10 {
		t.Errorf("Wrong number of rows: %d, expected: %d", len(result.Table), 10)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", result.Warnings)
	}
	if result.Calibration.FPS != 20 || result.Calibration.MicronsPerPixel != 0.2 {
		t.Errorf("Source calibration should be used, got: %+v", result.Calibration)
	}
	if result.Fit == nil {
		t.Errorf("Diffusion fit should be available")
	}
}

func TestPipelineMetadataFallback(t *testing.T) {
	cfg := DefaultConfig()
	buf := &bytes.Buffer{}
	logger := log.NewWithOptions(buf, log.Options{Level: log.WarnLevel})
	pipeline, err := NewPipeline(cfg, WithLogger(logger))
	if err != nil {
		t.Error(err)
		return
	}
	src := &memorySource{frames: linearMoverFrames(3), calErr: errors.New("no voxel size")}
	result, err := pipeline.Run(context.Background(), src)
	if err != nil {
		t.Error(err)
		return
	}
	if result.Calibration != cfg.Calibration() {
		t.Errorf("Wrong calibration: %+v, expected: %+v", result.Calibration, cfg.Calibration())
	}
	found := false
	for _, w := range result.Warnings {
		if w.Kind == WarningMetadataFallback {
			found = true
		}
	}
	if !found {
		t.Errorf("Metadata fallback must be reported, got: %v", result.Warnings)
	}
	if !bytes.Contains(buf.Bytes(), []byte("calibration fallback")) {
		t.Errorf("Metadata fallback must be logged, got: %q", buf.String())
	}
}

func TestPipelineInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Separation = 1
	_, err := NewPipeline(cfg)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Invalid config should fail fast, got: %v", err)
	}
}

func TestStream(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SearchRange = 5
	cfg.MinTrackLen = 5
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		t.Error(err)
		return
	}
	stream, err := pipeline.NewStream()
	if err != nil {
		t.Error(err)
		return
	}
	for _, frame := range linearMoverFrames(6) {
		if _, err = stream.Push(frame); err != nil {
			t.Error(err)
			return
		}
	}
	if _, err = stream.Push(NewEmptyFrame(6, 48, 48)); err != nil {
		t.Error(err)
		return
	}
	if len(stream.Warnings()) != 1 {
		t.Errorf("Wrong number of warnings: %d, expected: %d", len(stream.Warnings()), 1)
	}
	if _, err = stream.Push(NewEmptyFrame(7, 20, 20)); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("Shape mismatch should give ErrInvalidFrame, got: %v", err)
	}
	if len(stream.Open()) != 1 {
		t.Errorf("Wrong number of open trajectories: %d, expected: %d", len(stream.Open()), 1)
	}
	trajs := stream.Close()
	if len(trajs) != 1 || trajs[0].Len() != 6 {
		t.Errorf("Stream should produce one trajectory of 6 detections, got: %d", len(trajs))
	}
}
