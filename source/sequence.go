package source

import (
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/stat"
)

// Weights of luma conversion for colour frames
const (
	weightR = 0.299
	weightG = 0.587
	weightB = 0.114
)

// supportedExtensions are file types decodable by imaging
var supportedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".tif":  {},
	".tiff": {},
	".bmp":  {},
}

// ImageSequence is a directory of image files, one per frame, ordered by file name.
// Use zero padded names (frame_0001.png, ...) so that lexical order is time order.
//
// Calibration comes from sidecar file "metadata" (json, yaml or toml) in the same directory:
//
//	pixel_size_um: 0.1
//	frame_interval_s: 0.1    # or
//	frame_times_s: [0, 0.1, 0.2]
type ImageSequence struct {
	dir       string
	pattern   string
	paths     []string
	normalize bool
	// Brightest sample of the whole stack, used by normalization
	globalMax float64
}

// SequenceOption configures ImageSequence
type SequenceOption func(*ImageSequence)

// WithPattern restricts files to the ones matching glob pattern (e.g. "*.png")
func WithPattern(pattern string) SequenceOption {
	return func(seq *ImageSequence) {
		seq.pattern = pattern
	}
}

// WithNormalize rescales the whole stack to 0..255 by its global maximum and truncates to integers,
// so bright 16-bit stacks and dim 8-bit ones give comparable intensities
func WithNormalize() SequenceOption {
	return func(seq *ImageSequence) {
		seq.normalize = true
	}
}

// OpenImageSequence lists frames of directory. With normalization on every frame is decoded once to find
// the global maximum
func OpenImageSequence(dir string, opts ...SequenceOption) (*ImageSequence, error) {
	seq := &ImageSequence{
		dir: dir,
	}
	for _, opt := range opts {
		opt(seq)
	}
	paths, err := seq.list()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.Errorf("no image files in %s", dir)
	}
	seq.paths = paths

	if seq.normalize {
		for i := range seq.paths {
			frame, err := seq.decode(i)
			if err != nil {
				return nil, err
			}
			seq.globalMax = math.Max(seq.globalMax, frame.Max())
		}
	}
	return seq, nil
}

func (seq *ImageSequence) list() ([]string, error) {
	if seq.pattern != "" {
		paths, err := filepath.Glob(filepath.Join(seq.dir, seq.pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %s", seq.pattern)
		}
		sort.Strings(paths)
		return paths, nil
	}
	entries, err := os.ReadDir(seq.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read directory %s", seq.dir)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		paths = append(paths, filepath.Join(seq.dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Len returns number of frames
func (seq *ImageSequence) Len() int {
	return len(seq.paths)
}

// Paths returns frame files in frame order
func (seq *ImageSequence) Paths() []string {
	result := make([]string, len(seq.paths))
	copy(result, seq.paths)
	return result
}

// Frame decodes i-th file. Frame index equals its position
func (seq *ImageSequence) Frame(i int) (*ptrack.Frame, error) {
	frame, err := seq.decode(i)
	if err != nil {
		return nil, err
	}
	if seq.normalize && seq.globalMax > 0 {
		for j, v := range frame.Pix {
			frame.Pix[j] = math.Floor(math.Min(math.Max(v/seq.globalMax, 0), 1) * 255)
		}
	}
	return frame, nil
}

func (seq *ImageSequence) decode(i int) (*ptrack.Frame, error) {
	if i < 0 || i >= len(seq.paths) {
		return nil, errors.Errorf("frame position %d is out of range [0, %d)", i, len(seq.paths))
	}
	img, err := imaging.Open(seq.paths[i])
	if err != nil {
		return nil, errors.Wrapf(err, "can't decode %s", seq.paths[i])
	}
	return ToFrame(i, img), nil
}

// ToFrame converts decoded image to intensity frame. Grey images keep their depth (8 or 16 bit),
// colour ones are converted with 0.299R + 0.587G + 0.114B weights
func ToFrame(index int, img image.Image) *ptrack.Frame {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return ptrack.NewFrameFromImage(index, img)
	default:
		return ptrack.NewFrameFromImage(index, effect.GrayscaleWithWeights(img, weightR, weightG, weightB))
	}
}

// sidecar is content of the metadata file
type sidecar struct {
	PixelSizeUM    float64   `mapstructure:"pixel_size_um"`
	FrameIntervalS float64   `mapstructure:"frame_interval_s"`
	FrameTimesS    []float64 `mapstructure:"frame_times_s"`
}

// Calibration reads the sidecar. A missing sidecar is ErrNoMetadata, a missing key gives zero value
// for the corresponding field
func (seq *ImageSequence) Calibration() (ptrack.Calibration, error) {
	v := viper.New()
	v.SetConfigName("metadata")
	v.AddConfigPath(seq.dir)
	err := v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return ptrack.Calibration{}, errors.Wrapf(ErrNoMetadata, "no metadata file in %s", seq.dir)
		}
		return ptrack.Calibration{}, errors.Wrap(err, "can't read metadata")
	}
	meta := sidecar{}
	err = v.Unmarshal(&meta)
	if err != nil {
		return ptrack.Calibration{}, errors.Wrap(err, "can't parse metadata")
	}
	return meta.calibration(), nil
}

func (meta sidecar) calibration() ptrack.Calibration {
	cal := ptrack.Calibration{
		MicronsPerPixel: meta.PixelSizeUM,
	}
	switch {
	case meta.FrameIntervalS > 0:
		cal.FPS = 1.0 / meta.FrameIntervalS
	case len(meta.FrameTimesS) >= 2:
		diffs := make([]float64, len(meta.FrameTimesS)-1)
		for i := range diffs {
			diffs[i] = meta.FrameTimesS[i+1] - meta.FrameTimesS[i]
		}
		dt := stat.Mean(diffs, nil)
		if dt > 0 {
			cal.FPS = 1.0 / dt
		}
	}
	return cal
}
