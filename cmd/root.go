/*
Package cmd implements the command-line interface of ptrack.
It wires image sources, the particle tracking pipeline and exporters together.
*/
package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

/*
rootCmd represents the base command when called without any subcommands
*/
var (
	projectName = "ptrack"
	cfgFile     string
	logLevel    string

	rootCmd = &cobra.Command{
		Use:           projectName,
		Short:         "Detect, link and analyze moving particles in microscopy image sequences",
		Long:          longRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

/*
Execute is the main entry point of the CLI. Errors are logged before being returned.
*/
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		newLogger().Error("command failed", "err", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := ptrack.DefaultConfig()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml) with pipeline parameters")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	flags.Int("diameter", defaults.Diameter, "expected particle diameter, pixels (odd)")
	flags.Float64("minmass", defaults.MinMass, "minimum integrated brightness of a detection")
	flags.Float64("separation", defaults.Separation, "minimum distance between detections, pixels")
	flags.Float64("threshold", defaults.Threshold, "clip preprocessed values below this")
	flags.Bool("invert", defaults.Invert, "particles are dark on a bright background")
	flags.Bool("preprocess", defaults.Preprocess, "apply bandpass before locating maxima")
	flags.Float64("noise-size", defaults.NoiseSize, "gaussian sigma of noise smoothing, pixels")
	flags.Int("smoothing-size", defaults.SmoothingSize, "half width of background estimate, pixels (0 means diameter)")
	flags.Float64("percentile", defaults.Percentile, "peaks must exceed this percentile of non-zero pixels")
	flags.Int("max-iterations", defaults.MaxIterations, "max re-centering iterations")
	flags.Float64("search-range", defaults.SearchRange, "max displacement between frames, pixels")
	flags.Int("memory", defaults.Memory, "max consecutive frames a trajectory may be missing")
	flags.Int("min-track-len", defaults.MinTrackLen, "minimum detections per kept trajectory")
	flags.String("matching", defaults.Matching.String(), "assignment strategy: hungarian or greedy")
	flags.Bool("predict", defaults.Predict, "link against Kalman-predicted positions")
	flags.Float64("mpp", defaults.MicronsPerPixel, "fallback microns per pixel")
	flags.Float64("fps", defaults.FPS, "fallback frames per second")
	flags.Int("workers", defaults.Workers, "detection workers (0 means all CPUs)")
	flags.Int("msd-max-lag", defaults.MSDMaxLag, "largest lag of MSD summary, frames (0 means full span)")
	flags.Int("msd-fit-lags", defaults.MSDFitLags, "number of initial lags used in diffusion fit")

	// Config keys use snake case, flags use kebab case
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "log-level" {
			return
		}
		_ = viper.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
}

/*
initConfig reads config file (if given) and environment variables prefixed with PTRACK_.
Flags explicitly set on the command line have the highest priority.
*/
func initConfig() {
	viper.SetEnvPrefix(strings.ToUpper(projectName))
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		newLogger().Fatal("can't read config", "file", cfgFile, "err", err)
	}
}

// newLogger creates stderr logger with level given by --log-level
func newLogger() *log.Logger {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		level = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          projectName,
	})
}

// loadPipelineConfig merges defaults, config file, environment and flags
func loadPipelineConfig() (ptrack.PipelineConfig, error) {
	cfg := ptrack.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "can't decode pipeline config")
	}
	matching, err := ptrack.ParseMatchingAlgorithm(viper.GetString("matching"))
	if err != nil {
		return cfg, err
	}
	cfg.Matching = matching
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

/*
longRoot contains the detailed help text for the root command.
*/
var longRoot = `
ptrack locates bright (or dark) particles in every frame of an image sequence,
links them into trajectories across frames and summarizes their motion with
mean squared displacement and a diffusion coefficient fit.

Pipeline parameters come from (lowest to highest priority) built-in defaults,
the --config file, PTRACK_* environment variables and command-line flags.
`
