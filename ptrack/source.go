package ptrack

// FrameSource is anything that produces an ordered sequence of intensity frames.
// Frame(i) for i in [0, Len()) must return frames with strictly increasing indices.
type FrameSource interface {
	// Len returns number of frames
	Len() int
	// Frame returns i-th frame of the sequence
	Frame(i int) (*Frame, error)
	// Calibration returns physical calibration read from source metadata.
	// An error means metadata is missing and caller decides on fallback values.
	Calibration() (Calibration, error)
}
