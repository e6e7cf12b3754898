package source

import (
	"testing"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSequenceRoundTrip(t *testing.T) {
	cal := &ptrack.Calibration{MicronsPerPixel: 0.2, FPS: 8}
	particles := []Particle{
		{Start: ptrack.Point{X: 8, Y: 8}, Velocity: ptrack.Point{X: 1, Y: 1}, Amplitude: 180, Sigma: 1.2},
	}
	stack := Synthetic(4, particles, SyntheticOptions{Width: 24, Height: 24, Background: 3, Calibration: cal})

	dir := t.TempDir()
	paths, err := WriteSequence(dir, stack, stack.cal)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	seq, err := OpenImageSequence(dir)
	require.NoError(t, err)
	assert.Equal(t, paths, seq.Paths())

	got, err := seq.Calibration()
	require.NoError(t, err)
	assert.InDelta(t, cal.MicronsPerPixel, got.MicronsPerPixel, 1e-12)
	assert.InDelta(t, cal.FPS, got.FPS, 1e-9)

	rendered, err := stack.Frame(2)
	require.NoError(t, err)
	decoded, err := seq.Frame(2)
	require.NoError(t, err)
	require.Equal(t, rendered.Width, decoded.Width)
	for i := range rendered.Pix {
		assert.InDelta(t, rendered.Pix[i], decoded.Pix[i], 0.5)
	}
}

func TestToGrayClamps(t *testing.T) {
	frame := ptrack.NewEmptyFrame(0, 3, 1)
	frame.Pix = []float64{-4, 127.6, 300}
	img := ToGray(frame)
	assert.Equal(t, []uint8{0, 128, 255}, img.Pix)
}
