package ptrack

import (
	"math"
)

// testSpot is a Gaussian particle used to render synthetic frames
type testSpot struct {
	x, y      float64
	amplitude float64
	sigma     float64
}

func renderFrame(index, width, height int, spots ...testSpot) *Frame {
	frame := NewEmptyFrame(index, width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := 0.0
			for _, s := range spots {
				dx := float64(x) - s.x
				dy := float64(y) - s.y
				v += s.amplitude * math.Exp(-(dx*dx+dy*dy)/(2*s.sigma*s.sigma))
			}
			frame.Set(x, y, v)
		}
	}
	return frame
}
