package cmd

import (
	"fmt"
	"os"

	"github.com/LdDl/ptrack-go/export"
	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/LdDl/ptrack-go/source"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	inputDir      string
	inputPattern  string
	normalizeFlag bool
	csvPath       string
	dbPath        string
	plotPath      string
	msdPlotPath   string

	trackCmd = &cobra.Command{
		Use:   "track",
		Short: "Run the full tracking pipeline over an image sequence",
		Long:  longTrack,
		RunE:  runTrack,
	}
)

func init() {
	rootCmd.AddCommand(trackCmd)

	trackCmd.Flags().StringVarP(&inputDir, "input", "i", "", "directory with image frames")
	trackCmd.Flags().StringVar(&inputPattern, "pattern", "", "glob pattern of frame files inside the input directory")
	trackCmd.Flags().BoolVar(&normalizeFlag, "normalize", false, "rescale intensities by the global maximum of the sequence")
	trackCmd.Flags().StringVar(&csvPath, "csv", "", "write trajectory table to this CSV file")
	trackCmd.Flags().StringVar(&dbPath, "db", "", "save the run into this SQLite database")
	trackCmd.Flags().StringVar(&plotPath, "plot", "", "draw trajectories into this image file")
	trackCmd.Flags().StringVar(&msdPlotPath, "msd-plot", "", "draw ensemble MSD into this image file")
	_ = trackCmd.MarkFlagRequired("input")
}

func runTrack(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}

	opts := make([]source.SequenceOption, 0, 2)
	if inputPattern != "" {
		opts = append(opts, source.WithPattern(inputPattern))
	}
	if normalizeFlag {
		opts = append(opts, source.WithNormalize())
	}
	seq, err := source.OpenImageSequence(inputDir, opts...)
	if err != nil {
		return err
	}
	logger.Info("sequence opened", "dir", inputDir, "frames", seq.Len())

	pipeline, err := ptrack.NewPipeline(cfg, ptrack.WithLogger(logger))
	if err != nil {
		return err
	}
	result, err := pipeline.Run(cmd.Context(), seq)
	if err != nil {
		return err
	}

	if csvPath != "" {
		if err := writeCSVFile(csvPath, result.Table); err != nil {
			return err
		}
		logger.Info("table written", "file", csvPath, "rows", len(result.Table))
	}
	if dbPath != "" {
		store, err := export.OpenStore(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.SaveRun(cmd.Context(), result.RunID, cfg, result.Table); err != nil {
			return err
		}
		logger.Info("run saved", "db", dbPath, "run", result.RunID)
	}
	if plotPath != "" {
		width, height, err := frameShape(seq)
		if err != nil {
			return err
		}
		if err := export.PlotTrajectories(plotPath, result.Table, width, height); err != nil {
			return err
		}
	}
	if msdPlotPath != "" {
		if err := export.PlotMSD(msdPlotPath, result.MSD, result.Fit); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run:          %s\n", result.RunID)
	fmt.Fprintf(out, "detections:   %d\n", len(result.Detections))
	fmt.Fprintf(out, "trajectories: %d (%d kept)\n", len(result.Trajectories), len(result.Filtered))
	fmt.Fprintf(out, "warnings:     %d\n", len(result.Warnings))
	if result.Fit != nil {
		fmt.Fprintf(out, "D:            %.6g um^2/s (alpha %.3f, %d lags)\n", result.Fit.D, result.Fit.Alpha, result.Fit.Lags)
	}
	return nil
}

func writeCSVFile(path string, rows []ptrack.Row) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "can't create %s", path)
	}
	if err := export.WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// frameShape returns dimensions of the first frame of src
func frameShape(src ptrack.FrameSource) (int, int, error) {
	if src.Len() == 0 {
		return 0, 0, errors.New("empty sequence")
	}
	frame, err := src.Frame(0)
	if err != nil {
		return 0, 0, err
	}
	return frame.Width, frame.Height, nil
}

var longTrack = `
Locate particles in every frame of the input directory, link them into
trajectories and fit a diffusion coefficient to their ensemble MSD.

Examples:
  # Track gold nanoparticles and keep the trajectory table
  ptrack track --input ./movie --csv tracks.csv

  # Use greedy matching, store the run and draw trajectories
  ptrack track -i ./movie --matching greedy --db runs.db --plot tracks.png
`
