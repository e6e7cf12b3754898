package source

import (
	"context"
	"errors"
	"testing"

	"github.com/LdDl/ptrack-go/ptrack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack(t *testing.T) {
	frames := []*ptrack.Frame{ptrack.NewEmptyFrame(0, 4, 4), ptrack.NewEmptyFrame(1, 4, 4)}
	stack := NewStack(frames, nil)
	assert.Equal(t, 2, stack.Len())

	frame, err := stack.Frame(1)
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Index)

	_, err = stack.Frame(2)
	assert.Error(t, err)

	_, err = stack.Calibration()
	assert.True(t, errors.Is(err, ErrNoMetadata))

	stack = NewStack(frames, &ptrack.Calibration{MicronsPerPixel: 0.16, FPS: 25})
	cal, err := stack.Calibration()
	require.NoError(t, err)
	assert.Equal(t, 25.0, cal.FPS)
}

func TestRenderSpots(t *testing.T) {
	frame := RenderSpots(3, 20, 10, 5, []Spot{{X: 7, Y: 4, Amplitude: 100, Sigma: 1}})
	assert.Equal(t, 3, frame.Index)
	assert.InDelta(t, 105.0, frame.At(7, 4), 1e-9)
	assert.InDelta(t, 5.0, frame.At(19, 9), 1e-9)
	assert.Greater(t, frame.At(8, 4), frame.At(9, 4))
}

func TestSyntheticDeterministic(t *testing.T) {
	particles := []Particle{
		{Start: ptrack.Point{X: 10, Y: 10}, Velocity: ptrack.Point{X: 1, Y: 0.5}, Amplitude: 150, Sigma: 1.2},
	}
	opts := SyntheticOptions{Width: 40, Height: 30, Jitter: 0.3, Noise: 1, Seed: 7}
	first := Synthetic(5, particles, opts)
	second := Synthetic(5, particles, opts)
	require.Equal(t, 5, first.Len())
	for i := 0; i < first.Len(); i++ {
		a, err := first.Frame(i)
		require.NoError(t, err)
		b, err := second.Frame(i)
		require.NoError(t, err)
		assert.Equal(t, a.Pix, b.Pix)
	}
}

func TestSyntheticTracking(t *testing.T) {
	particles := []Particle{
		{Start: ptrack.Point{X: 10, Y: 12}, Velocity: ptrack.Point{X: 1, Y: 0}, Amplitude: 200, Sigma: 1.5},
		{Start: ptrack.Point{X: 40, Y: 30}, Velocity: ptrack.Point{X: 0, Y: -1}, Amplitude: 200, Sigma: 1.5},
	}
	stack := Synthetic(12, particles, SyntheticOptions{Width: 64, Height: 48, Seed: 1})

	cfg := ptrack.DefaultConfig()
	cfg.SearchRange = 5
	pipeline, err := ptrack.NewPipeline(cfg)
	require.NoError(t, err)
	result, err := pipeline.Run(context.Background(), stack)
	require.NoError(t, err)
	require.Len(t, result.Filtered, 2)
	for _, traj := range result.Filtered {
		assert.Equal(t, 12, traj.Len())
	}
	// No metadata on the stack
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, ptrack.WarningMetadataFallback, result.Warnings[0].Kind)
}
