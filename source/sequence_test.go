package source

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeColorFrames stores n RGB frames with a single red-ish spot
func writeColorFrames(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		img := imaging.New(32, 32, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
		img.Set(8+i, 16, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		err := imaging.Save(img, filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i)))
		require.NoError(t, err)
	}
}

func TestImageSequenceColor(t *testing.T) {
	dir := t.TempDir()
	writeColorFrames(t, dir, 3)
	// Not an image, must be skipped
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	seq, err := OpenImageSequence(dir)
	require.NoError(t, err)
	require.Equal(t, 3, seq.Len())

	frame, err := seq.Frame(2)
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Index)
	assert.Equal(t, 32, frame.Width)
	luma := 0.299*200 + 0.587*100 + 0.114*50
	expected := math.Floor(luma + 0.5)
	assert.InDelta(t, expected, frame.At(10, 16), 1e-9)
	assert.InDelta(t, 10.0, frame.At(0, 0), 1e-9)

	_, err = seq.Calibration()
	assert.True(t, errors.Is(err, ErrNoMetadata))
}

func TestImageSequenceGray16Normalize(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		img := image.NewGray16(image.Rect(0, 0, 8, 8))
		img.SetGray16(3, 3, color.Gray16{Y: uint16(1000 * (i + 1))})
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("t%02d.png", i)))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}

	raw, err := OpenImageSequence(dir, WithPattern("t*.png"))
	require.NoError(t, err)
	frame, err := raw.Frame(1)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, frame.At(3, 3))

	normalized, err := OpenImageSequence(dir, WithNormalize())
	require.NoError(t, err)
	frame, err = normalized.Frame(0)
	require.NoError(t, err)
	assert.Equal(t, 127.0, frame.At(3, 3))
	frame, err = normalized.Frame(1)
	require.NoError(t, err)
	assert.Equal(t, 255.0, frame.At(3, 3))
}

func TestImageSequenceCalibration(t *testing.T) {
	dir := t.TempDir()
	writeColorFrames(t, dir, 2)

	meta := "pixel_size_um: 0.16\nframe_times_s: [0, 0.05, 0.1, 0.15]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(meta), 0o644))
	seq, err := OpenImageSequence(dir)
	require.NoError(t, err)
	cal, err := seq.Calibration()
	require.NoError(t, err)
	assert.InDelta(t, 0.16, cal.MicronsPerPixel, 1e-12)
	assert.InDelta(t, 20.0, cal.FPS, 1e-9)

	// Interval wins over timestamps; missing pixel size stays zero and the pipeline falls back
	meta = "frame_interval_s: 0.04\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.yaml"), []byte(meta), 0o644))
	cal, err = seq.Calibration()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cal.MicronsPerPixel)
	assert.InDelta(t, 25.0, cal.FPS, 1e-9)
}

func TestImageSequenceEmptyDir(t *testing.T) {
	_, err := OpenImageSequence(t.TempDir())
	assert.Error(t, err)
}
