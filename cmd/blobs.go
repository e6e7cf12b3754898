package cmd

import (
	"fmt"

	"github.com/LdDl/ptrack-go/colormask"
	"github.com/LdDl/ptrack-go/export"
	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/LdDl/ptrack-go/source"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	blobsMinArea int
	blobsLow     []uint
	blobsHigh    []uint

	blobsCmd = &cobra.Command{
		Use:   "blobs",
		Short: "Track coloured markers found by HSV thresholding",
		Long:  longBlobs,
		RunE:  runBlobs,
	}
)

func init() {
	rootCmd.AddCommand(blobsCmd)

	green := colormask.NewGreenFinder()
	blobsCmd.Flags().StringVarP(&inputDir, "input", "i", "", "directory with colour frames")
	blobsCmd.Flags().StringVar(&inputPattern, "pattern", "", "glob pattern of frame files inside the input directory")
	blobsCmd.Flags().StringVar(&csvPath, "csv", "", "write trajectory table to this CSV file")
	blobsCmd.Flags().StringVar(&plotPath, "plot", "", "draw trajectories into this image file")
	blobsCmd.Flags().IntVar(&blobsMinArea, "min-area", green.MinArea, "minimum blob area, pixels")
	blobsCmd.Flags().UintSliceVar(&blobsLow, "low", []uint{40, 80, 80}, "lower HSV bound, OpenCV 8-bit units")
	blobsCmd.Flags().UintSliceVar(&blobsHigh, "high", []uint{85, 255, 255}, "upper HSV bound, OpenCV 8-bit units")
	_ = blobsCmd.MarkFlagRequired("input")
}

func parseOpenCVBound(name string, values []uint) (colormask.HSV, error) {
	if len(values) != 3 {
		return colormask.HSV{}, errors.Errorf("--%s needs 3 values, got %d", name, len(values))
	}
	for _, v := range values {
		if v > 255 {
			return colormask.HSV{}, errors.Errorf("--%s value %d is out of [0, 255]", name, v)
		}
	}
	return colormask.FromOpenCV(uint8(values[0]), uint8(values[1]), uint8(values[2])), nil
}

func runBlobs(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadPipelineConfig()
	if err != nil {
		return err
	}
	finder := colormask.NewGreenFinder()
	finder.MinArea = blobsMinArea
	if finder.Low, err = parseOpenCVBound("low", blobsLow); err != nil {
		return err
	}
	if finder.High, err = parseOpenCVBound("high", blobsHigh); err != nil {
		return err
	}

	opts := make([]source.SequenceOption, 0, 1)
	if inputPattern != "" {
		opts = append(opts, source.WithPattern(inputPattern))
	}
	seq, err := source.OpenImageSequence(inputDir, opts...)
	if err != nil {
		return err
	}

	dets := make([]ptrack.Detection, 0)
	width, height := 0, 0
	for i, path := range seq.Paths() {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		img, err := imaging.Open(path)
		if err != nil {
			return errors.Wrapf(err, "can't decode %s", path)
		}
		width, height = img.Bounds().Dx(), img.Bounds().Dy()
		blobs := finder.Find(img)
		if len(blobs) == 0 {
			logger.Warn("no blobs", "frame", i, "file", path)
		}
		dets = append(dets, colormask.Detections(i, blobs)...)
	}
	logger.Info("blobs located", "frames", seq.Len(), "detections", len(dets))

	trajs, err := ptrack.LinkDetections(dets, cfg)
	if err != nil {
		return err
	}
	kept := ptrack.FilterStubs(trajs, cfg.MinTrackLen)
	table := ptrack.BuildTable(kept)
	logger.Info("trajectories linked", "total", len(trajs), "kept", len(kept))

	if csvPath != "" {
		if err := writeCSVFile(csvPath, table); err != nil {
			return err
		}
	}
	if plotPath != "" {
		if err := export.PlotTrajectories(plotPath, table, width, height); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "detections: %d\ntrajectories: %d (%d kept)\n", len(dets), len(trajs), len(kept))
	return nil
}

var longBlobs = `
Find coloured markers (green by default) in every frame, link their centers
into trajectories and export the trajectory table. Linking uses the same
search range, memory and matching parameters as the track command.

Examples:
  # Track green markers
  ptrack blobs --input ./video_frames --csv markers.csv

  # Track red markers (hue wraps around 0)
  ptrack blobs -i ./video_frames --low 170,120,70 --high 10,255,255
`
