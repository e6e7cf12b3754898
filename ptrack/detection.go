package ptrack

// Detection is one candidate particle found in one frame.
// It has no identity: identity is assigned only by Linker.
type Detection struct {
	// Frame index the detection belongs to
	Frame int
	// Sub-pixel position, pixel units
	X float64
	Y float64
	// Integrated (background-subtracted) brightness
	Mass float64
	// Radius of gyration, pixels
	Size float64
	// Eccentricity: 0 is circular
	Ecc float64
	// Brightest sample inside the window
	Signal float64
}

// Position returns detection's position as Point
func (det Detection) Position() Point {
	return NewPoint(det.X, det.Y)
}

// FrameDetections groups detections of a single frame
type FrameDetections struct {
	Frame      int
	Detections []Detection
}

// GroupByFrame splits flat table (ordered by frame) into per-frame groups.
// Frames absent from the table are absent from the result as well.
func GroupByFrame(dets []Detection) []FrameDetections {
	groups := make([]FrameDetections, 0)
	for i := range dets {
		n := len(groups)
		if n == 0 || groups[n-1].Frame != dets[i].Frame {
			groups = append(groups, FrameDetections{Frame: dets[i].Frame})
			n++
		}
		groups[n-1].Detections = append(groups[n-1].Detections, dets[i])
	}
	return groups
}
