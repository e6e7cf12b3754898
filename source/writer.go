package source

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ToGray converts frame to 8-bit image. Samples are rounded and clamped to [0, 255]
func ToGray(frame *ptrack.Frame) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			v := math.Round(frame.At(x, y))
			img.SetGray(x, y, color.Gray{Y: uint8(math.Min(math.Max(v, 0), 255))})
		}
	}
	return img
}

// WriteSequence saves every frame of src as frame_NNNN.png into dir. Non-nil calibration is written
// to the metadata.yaml sidecar, so OpenImageSequence(dir) reads back the same sequence
func WriteSequence(dir string, src ptrack.FrameSource, cal *ptrack.Calibration) ([]string, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create %s", dir)
	}
	paths := make([]string, src.Len())
	for i := range paths {
		frame, err := src.Frame(i)
		if err != nil {
			return nil, errors.Wrapf(err, "can't get frame %d", i)
		}
		paths[i] = filepath.Join(dir, fmt.Sprintf("frame_%04d.png", frame.Index))
		err = imaging.Save(ToGray(frame), paths[i])
		if err != nil {
			return nil, errors.Wrapf(err, "can't save %s", paths[i])
		}
	}
	if cal == nil {
		return paths, nil
	}
	v := viper.New()
	v.Set("pixel_size_um", cal.MicronsPerPixel)
	v.Set("frame_interval_s", 1.0/cal.FPS)
	err = v.WriteConfigAs(filepath.Join(dir, "metadata.yaml"))
	if err != nil {
		return nil, errors.Wrap(err, "can't write metadata")
	}
	return paths, nil
}
