package ptrack

import (
	"container/heap"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// refineShiftThreshold is the centroid offset (pixels, per axis) that makes refinement re-center the window
const refineShiftThreshold = 0.6

// Detect finds candidate particles in a single frame.
//
// Steps: optional inversion and bandpass, percentile brightness floor, local maxima over a circular
// footprint of radius Separation/2, border margin of Diameter/2, suppression of maxima closer than
// Separation (brighter one wins), sub-pixel centroid refinement over a circular window of Diameter
// and finally the MinMass cut.
//
// Detect is pure: the frame is not modified and identical input gives identical output.
// A frame without maxima gives an empty (non-nil) slice.
func Detect(frame *Frame, cfg PipelineConfig) ([]Detection, error) {
	if frame == nil {
		return nil, &InvalidFrameError{Position: -1, Index: -1, Reason: "nil frame"}
	}
	if err := frame.check(); err != nil {
		return nil, &InvalidFrameError{Position: -1, Index: frame.Index, Reason: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pix := preprocess(frame, cfg)
	floor := percentileFloor(pix, cfg.Percentile)

	peaks := localMaxima(pix, frame.Width, frame.Height, cfg, floor)
	peaks = suppressClose(peaks, cfg.Separation)

	detections := make([]Detection, 0, len(peaks))
	w := newWindow(cfg.radius())
	for _, p := range peaks {
		det, ok := w.refine(pix, frame.Width, frame.Height, p.x, p.y, cfg.MaxIterations)
		if !ok {
			continue
		}
		if det.Mass < cfg.MinMass {
			continue
		}
		det.Frame = frame.Index
		detections = append(detections, det)
	}
	return detections, nil
}

// percentileFloor returns value which peaks have to exceed. Zero percentile disables the floor
func percentileFloor(pix []float64, percentile float64) float64 {
	if percentile <= 0 {
		return 0
	}
	nonZero := make([]float64, 0, len(pix))
	for _, v := range pix {
		if v != 0 {
			nonZero = append(nonZero, v)
		}
	}
	if len(nonZero) == 0 {
		return 0
	}
	sort.Float64s(nonZero)
	return stat.Quantile(percentile/100.0, stat.Empirical, nonZero, nil)
}

// localMaxima returns pixels equal to the maximum of their circular neighbourhood,
// strictly brighter than floor, not below cfg.Threshold and far enough from the border to hold a full window.
func localMaxima(pix []float64, width, height int, cfg PipelineConfig, floor float64) []*peak {
	margin := cfg.radius()
	footprint := circleOffsets(maxInt(1, int(math.Round(cfg.Separation/2))))
	peaks := make([]*peak, 0)
	for y := margin; y < height-margin; y++ {
		for x := margin; x < width-margin; x++ {
			v := pix[y*width+x]
			if v <= floor || v <= 0 || v < cfg.Threshold {
				continue
			}
			isMax := true
			for _, o := range footprint {
				nx, ny := x+o.X, y+o.Y
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				if pix[ny*width+nx] > v {
					isMax = false
					break
				}
			}
			if isMax {
				peaks = append(peaks, &peak{x: x, y: y, value: v, order: y*width + x})
			}
		}
	}
	return peaks
}

// suppressClose drops every peak which has a brighter (or equally bright, earlier) peak
// at distance < separation. Result keeps row-major order.
func suppressClose(peaks []*peak, separation float64) []*peak {
	if len(peaks) < 2 {
		return peaks
	}
	points := make([]Point, len(peaks))
	for i, p := range peaks {
		points[i] = Point{X: float64(p.x), Y: float64(p.y)}
	}
	index := newSpatialIndex(points)
	position := make(map[*peak]int, len(peaks))
	for i, p := range peaks {
		position[p] = i
	}

	h := make(peakHeap, 0, len(peaks))
	heap.Init(&h)
	for _, p := range peaks {
		heap.Push(&h, p)
	}
	suppressed := make([]bool, len(peaks))
	for h.Len() > 0 {
		p := heap.Pop(&h).(*peak)
		i := position[p]
		if suppressed[i] {
			continue
		}
		for _, nb := range index.within(points[i], separation) {
			if nb.idx == i || nb.dist2 >= separation*separation {
				continue
			}
			suppressed[nb.idx] = true
		}
	}
	kept := make([]*peak, 0, len(peaks))
	for i, p := range peaks {
		if !suppressed[i] {
			kept = append(kept, p)
		}
	}
	return kept
}

func circleOffsets(radius int) []Point2i {
	offsets := make([]Point2i, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				offsets = append(offsets, Point2i{X: dx, Y: dy})
			}
		}
	}
	return offsets
}

// Point2i is integer pixel offset
type Point2i struct {
	X int
	Y int
}

// window is a circular neighbourhood used for centroid refinement
type window struct {
	radius  int
	offsets []Point2i
}

func newWindow(radius int) *window {
	return &window{
		radius:  radius,
		offsets: circleOffsets(radius),
	}
}

// refine computes sub-pixel centroid and shape features around (cx, cy).
// The window is re-centred while centroid offset exceeds refineShiftThreshold, at most maxIterations times.
func (w *window) refine(pix []float64, width, height, cx, cy, maxIterations int) (Detection, bool) {
	var mass, offX, offY float64
	for iteration := 0; ; iteration++ {
		mass, offX, offY = w.centroid(pix, width, cx, cy)
		if mass <= 0 {
			return Detection{}, false
		}
		if iteration >= maxIterations {
			break
		}
		if math.Abs(offX) <= refineShiftThreshold && math.Abs(offY) <= refineShiftThreshold {
			break
		}
		nx := clampInt(cx+int(math.Round(offX)), w.radius, width-1-w.radius)
		ny := clampInt(cy+int(math.Round(offY)), w.radius, height-1-w.radius)
		if nx == cx && ny == cy {
			break
		}
		cx, cy = nx, ny
	}

	var rg, cos2, sin2, signal float64
	center := pix[cy*width+cx]
	for _, o := range w.offsets {
		v := pix[(cy+o.Y)*width+cx+o.X]
		signal = maxFloat64(signal, v)
		rx := float64(o.X) - offX
		ry := float64(o.Y) - offY
		rg += v * (rx*rx + ry*ry)
		if o.X == 0 && o.Y == 0 {
			continue
		}
		theta := math.Atan2(float64(o.Y), float64(o.X))
		cos2 += v * math.Cos(2*theta)
		sin2 += v * math.Sin(2*theta)
	}
	ecc := math.Sqrt(cos2*cos2+sin2*sin2) / (mass - center + 1e-6)
	return Detection{
		X:      float64(cx) + offX,
		Y:      float64(cy) + offY,
		Mass:   mass,
		Size:   math.Sqrt(rg / mass),
		Ecc:    minFloat64(maxFloat64(ecc, 0), 1),
		Signal: signal,
	}, true
}

// centroid returns window mass and intensity-weighted offset of the centre of mass from (cx, cy)
func (w *window) centroid(pix []float64, width, cx, cy int) (mass, offX, offY float64) {
	var sx, sy float64
	for _, o := range w.offsets {
		v := pix[(cy+o.Y)*width+cx+o.X]
		mass += v
		sx += v * float64(o.X)
		sy += v * float64(o.Y)
	}
	if mass <= 0 {
		return mass, 0, 0
	}
	return mass, sx / mass, sy / mass
}
