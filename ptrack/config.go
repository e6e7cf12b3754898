package ptrack

import (
	"math"
	"runtime"
)

// MatchingAlgorithm is for algorithm type for matching detections to trajectories
type MatchingAlgorithm uint16

const (
	// MatchingAlgorithmHungarian uses the Hungarian algorithm (Kuhn-Munkres) for optimal assignment
	MatchingAlgorithmHungarian MatchingAlgorithm = iota
	// MatchingAlgorithmGreedy uses a greedy nearest-pair algorithm for faster but potentially suboptimal assignment
	MatchingAlgorithmGreedy
)

func (m MatchingAlgorithm) String() string {
	switch m {
	case MatchingAlgorithmHungarian:
		return "hungarian"
	case MatchingAlgorithmGreedy:
		return "greedy"
	default:
		return "unknown"
	}
}

// ParseMatchingAlgorithm converts a name ("hungarian", "greedy") into MatchingAlgorithm
func ParseMatchingAlgorithm(name string) (MatchingAlgorithm, error) {
	switch name {
	case "", "hungarian":
		return MatchingAlgorithmHungarian, nil
	case "greedy":
		return MatchingAlgorithmGreedy, nil
	default:
		return 0, &InvalidConfigError{Field: "matching", Reason: "must be one of hungarian, greedy; got " + name}
	}
}

// Calibration is physical calibration of one pipeline run
type Calibration struct {
	MicronsPerPixel float64
	FPS             float64
}

// PipelineConfig holds every tunable of a run. Treat it as immutable once a pipeline is built.
type PipelineConfig struct {
	// Expected particle footprint in pixels. Must be a positive odd integer
	Diameter int `mapstructure:"diameter"`
	// Lower bound of integrated brightness
	MinMass float64 `mapstructure:"minmass"`
	// Minimum distance between two detections. Must be >= Diameter
	Separation float64 `mapstructure:"separation"`
	// Values of the preprocessed image below this are clipped to zero
	Threshold float64 `mapstructure:"threshold"`
	// Particles are dark on a bright background
	Invert bool `mapstructure:"invert"`
	// Apply bandpass (noise smoothing + background subtraction) before locating maxima
	Preprocess bool `mapstructure:"preprocess"`
	// Gaussian sigma of noise smoothing, pixels. Zero disables
	NoiseSize float64 `mapstructure:"noise_size"`
	// Half width of boxcar background estimate, pixels. Zero means Diameter
	SmoothingSize int `mapstructure:"smoothing_size"`
	// Peaks must be brighter than this percentile of non-zero pixels. Zero disables
	Percentile float64 `mapstructure:"percentile"`
	// Max re-centering iterations of sub-pixel refinement
	MaxIterations int `mapstructure:"max_iterations"`

	// Max displacement between frames, pixels
	SearchRange float64 `mapstructure:"search_range"`
	// Max consecutive frames a trajectory may go unmatched
	Memory int `mapstructure:"memory"`
	// Minimum detections per trajectory kept by the filter
	MinTrackLen int `mapstructure:"min_track_len"`
	// Assignment strategy
	Matching MatchingAlgorithm `mapstructure:"-"`
	// Use Kalman-predicted positions instead of last known ones as the reference point
	Predict bool `mapstructure:"predict"`

	// Fallback calibration used when the frame source has none
	MicronsPerPixel float64 `mapstructure:"mpp"`
	FPS             float64 `mapstructure:"fps"`

	// Detection workers. Zero or negative means GOMAXPROCS
	Workers int `mapstructure:"workers"`
	// Largest lag (frames) for MSD summary
	MSDMaxLag int `mapstructure:"msd_max_lag"`
	// Number of initial lags used for the diffusion fit
	MSDFitLags int `mapstructure:"msd_fit_lags"`
}

// DefaultConfig returns parameters of a typical dark-field gold nanoparticle movie
func DefaultConfig() PipelineConfig {
	return PipelineConfig{
		Diameter:        5,
		MinMass:         60,
		Separation:      5,
		Threshold:       2,
		Invert:          false,
		Preprocess:      true,
		NoiseSize:       1,
		SmoothingSize:   0,
		Percentile:      50,
		MaxIterations:   10,
		SearchRange:     9,
		Memory:          3,
		MinTrackLen:     5,
		Matching:        MatchingAlgorithmHungarian,
		Predict:         false,
		MicronsPerPixel: 0.1,
		FPS:             10,
		Workers:         0,
		MSDMaxLag:       100,
		MSDFitLags:      5,
	}
}

// Validate checks constraints of the config. It returns *InvalidConfigError on the first violation
func (cfg PipelineConfig) Validate() error {
	switch {
	case cfg.Diameter <= 0 || cfg.Diameter%2 == 0:
		return &InvalidConfigError{Field: "diameter", Reason: "must be a positive odd integer"}
	case cfg.MinMass < 0 || math.IsNaN(cfg.MinMass):
		return &InvalidConfigError{Field: "minmass", Reason: "must be non-negative"}
	case cfg.Separation < float64(cfg.Diameter):
		return &InvalidConfigError{Field: "separation", Reason: "must be >= diameter"}
	case cfg.Threshold < 0:
		return &InvalidConfigError{Field: "threshold", Reason: "must be non-negative"}
	case cfg.NoiseSize < 0:
		return &InvalidConfigError{Field: "noise_size", Reason: "must be non-negative"}
	case cfg.SmoothingSize < 0:
		return &InvalidConfigError{Field: "smoothing_size", Reason: "must be non-negative"}
	case cfg.Percentile < 0 || cfg.Percentile >= 100:
		return &InvalidConfigError{Field: "percentile", Reason: "must be in [0, 100)"}
	case cfg.MaxIterations < 0:
		return &InvalidConfigError{Field: "max_iterations", Reason: "must be non-negative"}
	case !(cfg.SearchRange > 0) || math.IsInf(cfg.SearchRange, 0):
		return &InvalidConfigError{Field: "search_range", Reason: "must be positive and finite"}
	case cfg.Memory < 0:
		return &InvalidConfigError{Field: "memory", Reason: "must be non-negative"}
	case cfg.MinTrackLen < 0:
		return &InvalidConfigError{Field: "min_track_len", Reason: "must be non-negative"}
	case cfg.Matching != MatchingAlgorithmHungarian && cfg.Matching != MatchingAlgorithmGreedy:
		return &InvalidConfigError{Field: "matching", Reason: "unknown algorithm"}
	case !(cfg.MicronsPerPixel > 0):
		return &InvalidConfigError{Field: "mpp", Reason: "must be positive"}
	case !(cfg.FPS > 0):
		return &InvalidConfigError{Field: "fps", Reason: "must be positive"}
	case cfg.MSDMaxLag < 0:
		return &InvalidConfigError{Field: "msd_max_lag", Reason: "must be non-negative"}
	case cfg.MSDFitLags < 0:
		return &InvalidConfigError{Field: "msd_fit_lags", Reason: "must be non-negative"}
	}
	return nil
}

// Calibration returns fallback calibration of the config
func (cfg PipelineConfig) Calibration() Calibration {
	return Calibration{
		MicronsPerPixel: cfg.MicronsPerPixel,
		FPS:             cfg.FPS,
	}
}

func (cfg PipelineConfig) radius() int {
	return cfg.Diameter / 2
}

func (cfg PipelineConfig) smoothingSize() int {
	if cfg.SmoothingSize == 0 {
		return cfg.Diameter
	}
	return cfg.SmoothingSize
}

func (cfg PipelineConfig) workers() int {
	if cfg.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return cfg.Workers
}
