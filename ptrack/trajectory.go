package ptrack

// TrackState is lifecycle state of a trajectory
type TrackState uint8

const (
	// TrackActive means trajectory was extended in the latest linked frame
	TrackActive TrackState = iota
	// TrackDormant means trajectory missed one or more frames but may still be extended
	TrackDormant
	// TrackClosed means trajectory can not be extended anymore
	TrackClosed
)

func (s TrackState) String() string {
	switch s {
	case TrackActive:
		return "active"
	case TrackDormant:
		return "dormant"
	case TrackClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Trajectory is an ordered chain of detections believed to be one physical particle.
// It exclusively owns its detections.
type Trajectory struct {
	// Unique identifier assigned in creation order
	ID int
	// Detections ordered by strictly increasing frame index
	Detections []Detection

	state TrackState
	// Number of consecutive frames without a match
	dormant   int
	predictor *kalmanPredictor
}

func newTrajectory(id int, first Detection) *Trajectory {
	traj := Trajectory{
		ID:         id,
		Detections: make([]Detection, 0, 8),
		state:      TrackActive,
	}
	traj.Detections = append(traj.Detections, first)
	return &traj
}

// Len returns number of detections
func (traj *Trajectory) Len() int {
	return len(traj.Detections)
}

// State returns current lifecycle state
func (traj *Trajectory) State() TrackState {
	return traj.state
}

// DormantFrames returns number of consecutive frames trajectory went unmatched. Zero for active one
func (traj *Trajectory) DormantFrames() int {
	return traj.dormant
}

// Last returns last detection of trajectory
func (traj *Trajectory) Last() Detection {
	return traj.Detections[len(traj.Detections)-1]
}

// FirstFrame returns frame index where trajectory starts
func (traj *Trajectory) FirstFrame() int {
	return traj.Detections[0].Frame
}

// LastFrame returns frame index of the latest detection
func (traj *Trajectory) LastFrame() int {
	return traj.Last().Frame
}

// Track returns positions of trajectory. This is a copy
func (traj *Trajectory) Track() []Point {
	track := make([]Point, len(traj.Detections))
	for i := range traj.Detections {
		track[i] = traj.Detections[i].Position()
	}
	return track
}

// extend appends detection and brings trajectory back to active
func (traj *Trajectory) extend(det Detection) error {
	traj.Detections = append(traj.Detections, det)
	traj.state = TrackActive
	traj.dormant = 0
	if traj.predictor != nil {
		return traj.predictor.update(det.Position())
	}
	return nil
}

// miss marks trajectory as unmatched in frame
func (traj *Trajectory) miss(frame int) {
	traj.state = TrackDormant
	traj.dormant = frame - traj.LastFrame()
}

func (traj *Trajectory) close() {
	traj.state = TrackClosed
	traj.predictor = nil
}

// reference returns point used for distance calculations in frame
func (traj *Trajectory) reference(frame int) Point {
	if traj.predictor != nil {
		return traj.predictor.predictAt(frame)
	}
	return traj.Last().Position()
}
