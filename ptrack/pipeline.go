package ptrack

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Pipeline is detection -> linking -> filtering over a frame source
type Pipeline struct {
	cfg    PipelineConfig
	logger *log.Logger
}

// Option configures Pipeline
type Option func(*Pipeline)

// WithLogger sets logger for pipeline progress and warnings
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline validates config and creates new instance of Pipeline.
// Invalid config fails here, before any frame is read.
func NewPipeline(cfg PipelineConfig, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{
		cfg:    cfg,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns config of the pipeline
func (p *Pipeline) Config() PipelineConfig {
	return p.cfg
}

// Result is everything produced by one pipeline run
type Result struct {
	RunID       uuid.UUID
	Calibration Calibration
	// Every detection of every frame, frame order
	Detections []Detection
	// All trajectories ever created, ordered by ID
	Trajectories []*Trajectory
	// Trajectories which passed FilterStubs
	Filtered []*Trajectory
	// Trajectory table of filtered trajectories
	Table []Row
	// Ensemble MSD of filtered trajectories
	MSD []MSDPoint
	// Nil when MSD has not enough lags to fit
	Fit      *DiffusionFit
	Warnings []Warning
}

// Run reads every frame of src and processes them as a single batch
func (p *Pipeline) Run(ctx context.Context, src FrameSource) (*Result, error) {
	runID := uuid.New()
	logger := p.logger.With("run", runID.String())
	result := &Result{
		RunID:    runID,
		Warnings: make([]Warning, 0),
	}

	cal, warning := p.resolveCalibration(src)
	if warning != nil {
		logger.Warn("calibration fallback", "reason", warning.Message, "mpp", cal.MicronsPerPixel, "fps", cal.FPS)
		result.Warnings = append(result.Warnings, *warning)
	}
	result.Calibration = cal

	frames := make([]*Frame, src.Len())
	for i := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frame, err := src.Frame(i)
		if err != nil {
			return nil, errors.Wrapf(err, "can't read frame at position %d", i)
		}
		frames[i] = frame
	}
	logger.Info("frames loaded", "frames", len(frames))

	batch, err := ProcessFrames(ctx, frames, p.cfg)
	if err != nil {
		return nil, err
	}
	for _, w := range batch.Warnings {
		logger.Warn("empty detection set", "frame", w.Frame)
	}
	result.Detections = batch.Detections
	result.Warnings = append(result.Warnings, batch.Warnings...)
	logger.Info("features located", "detections", len(batch.Detections))

	linkCfg := p.cfg
	linkCfg.MicronsPerPixel = cal.MicronsPerPixel
	linkCfg.FPS = cal.FPS
	trajs, err := Link(batch.PerFrame, linkCfg)
	if err != nil {
		return nil, err
	}
	result.Trajectories = trajs
	result.Filtered = FilterStubs(trajs, p.cfg.MinTrackLen)
	result.Table = BuildTable(result.Filtered)
	logger.Info("trajectories linked", "total", len(trajs), "kept", len(result.Filtered), "min_track_len", p.cfg.MinTrackLen)

	result.MSD = EMSD(result.Filtered, cal, p.cfg.MSDMaxLag)
	fit, err := FitDiffusion(result.MSD, p.cfg.MSDFitLags)
	switch {
	case err == nil:
		result.Fit = &fit
		logger.Info("diffusion fitted", "D", fit.D, "alpha", fit.Alpha, "lags", fit.Lags)
	case errors.Is(err, ErrNotEnoughLags):
		logger.Debug("diffusion fit skipped", "error", err)
	default:
		return nil, err
	}
	return result, nil
}

// resolveCalibration prefers source metadata. Missing or unusable metadata gives config defaults and a warning
func (p *Pipeline) resolveCalibration(src FrameSource) (Calibration, *Warning) {
	fallback := p.cfg.Calibration()
	cal, err := src.Calibration()
	if err != nil {
		return fallback, &Warning{
			Kind:    WarningMetadataFallback,
			Frame:   -1,
			Message: err.Error(),
		}
	}
	var reasons []string
	if !(cal.MicronsPerPixel > 0) {
		reasons = append(reasons, fmt.Sprintf("pixel size %v", cal.MicronsPerPixel))
		cal.MicronsPerPixel = fallback.MicronsPerPixel
	}
	if !(cal.FPS > 0) {
		reasons = append(reasons, fmt.Sprintf("frame rate %v", cal.FPS))
		cal.FPS = fallback.FPS
	}
	if len(reasons) == 0 {
		return cal, nil
	}
	return cal, &Warning{
		Kind:    WarningMetadataFallback,
		Frame:   -1,
		Message: fmt.Sprintf("unusable metadata: %v", reasons),
	}
}
