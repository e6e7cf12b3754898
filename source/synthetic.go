package source

import (
	"math"
	"math/rand"

	"github.com/LdDl/ptrack-go/ptrack"
)

// Spot is a Gaussian particle image
type Spot struct {
	X         float64
	Y         float64
	Amplitude float64
	Sigma     float64
}

// RenderSpots renders spots on a flat background.
// Every spot is evaluated within 4 sigma of its center only.
func RenderSpots(index, width, height int, background float64, spots []Spot) *ptrack.Frame {
	frame := ptrack.NewEmptyFrame(index, width, height)
	for i := range frame.Pix {
		frame.Pix[i] = background
	}
	for _, s := range spots {
		if s.Sigma <= 0 {
			continue
		}
		reach := int(math.Ceil(4 * s.Sigma))
		x0 := maxInt(0, int(math.Floor(s.X))-reach)
		x1 := minInt(width-1, int(math.Ceil(s.X))+reach)
		y0 := maxInt(0, int(math.Floor(s.Y))-reach)
		y1 := minInt(height-1, int(math.Ceil(s.Y))+reach)
		twoSigma2 := 2 * s.Sigma * s.Sigma
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				dx := float64(x) - s.X
				dy := float64(y) - s.Y
				frame.Pix[y*width+x] += s.Amplitude * math.Exp(-(dx*dx+dy*dy)/twoSigma2)
			}
		}
	}
	return frame
}

// Particle describes a synthetic particle moving with constant velocity (pixels per frame)
type Particle struct {
	Start     ptrack.Point
	Velocity  ptrack.Point
	Amplitude float64
	Sigma     float64
}

// SyntheticOptions tunes Synthetic
type SyntheticOptions struct {
	Width      int
	Height     int
	Background float64
	// Standard deviation of Brownian steps, pixels per frame. Zero gives straight lines
	Jitter float64
	// Standard deviation of additive pixel noise
	Noise float64
	Seed  int64
	// Calibration attached to the stack. Nil means no metadata
	Calibration *ptrack.Calibration
}

// Synthetic renders n frames of moving particles.
// The same options and seed always give the same frames.
func Synthetic(n int, particles []Particle, opts SyntheticOptions) *Stack {
	rng := rand.New(rand.NewSource(opts.Seed))
	positions := make([]ptrack.Point, len(particles))
	for i := range particles {
		positions[i] = particles[i].Start
	}
	frames := make([]*ptrack.Frame, n)
	for f := 0; f < n; f++ {
		spots := make([]Spot, len(particles))
		for i, p := range particles {
			spots[i] = Spot{X: positions[i].X, Y: positions[i].Y, Amplitude: p.Amplitude, Sigma: p.Sigma}
		}
		frame := RenderSpots(f, opts.Width, opts.Height, opts.Background, spots)
		if opts.Noise > 0 {
			for i := range frame.Pix {
				frame.Pix[i] = math.Max(0, frame.Pix[i]+rng.NormFloat64()*opts.Noise)
			}
		}
		frames[f] = frame
		for i, p := range particles {
			positions[i].X += p.Velocity.X + rng.NormFloat64()*opts.Jitter
			positions[i].Y += p.Velocity.Y + rng.NormFloat64()*opts.Jitter
		}
	}
	return NewStack(frames, opts.Calibration)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
