package ptrack

import (
	"sort"

	"github.com/pkg/errors"
)

// Linker assigns particle identities across frames.
// Frames must be fed in strictly increasing index order. Linker is not safe for concurrent use:
// the caller owns it exclusively for the whole run.
type Linker struct {
	cfg PipelineConfig
	// Main storage: every trajectory ever created, ID is the position
	trajectories []*Trajectory
	// Trajectories which still may be extended (active or dormant)
	open []*Trajectory
	// Time between two consecutive frames, seconds. Used by predictors only
	dt        float64
	lastFrame int
	started   bool
	finished  bool
}

// NewLinker creates new instance of Linker
func NewLinker(cfg PipelineConfig) (*Linker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Linker{
		cfg:          cfg,
		trajectories: make([]*Trajectory, 0),
		open:         make([]*Trajectory, 0),
		dt:           1.0 / cfg.FPS,
		lastFrame:    -1,
	}, nil
}

// Next links detections of a single frame to existing trajectories.
// Every detection must belong to the given frame.
func (lk *Linker) Next(frame int, dets []Detection) error {
	if lk.finished {
		return errors.Wrap(ErrFrameOrder, "linker is already finished")
	}
	if frame < 0 || (lk.started && frame <= lk.lastFrame) {
		return errors.Wrapf(ErrFrameOrder, "got frame %d after frame %d", frame, lk.lastFrame)
	}
	for i := range dets {
		if dets[i].Frame != frame {
			return errors.Wrapf(ErrFrameOrder, "detection %d belongs to frame %d, but frame %d is being linked", i, dets[i].Frame, frame)
		}
	}
	lk.started = true
	lk.lastFrame = frame

	// Close trajectories which have been missing for too long (frame indices may have gaps)
	eligible := make([]*Trajectory, 0, len(lk.open))
	for _, traj := range lk.open {
		if frame-traj.LastFrame()-1 > lk.cfg.Memory {
			traj.close()
			continue
		}
		eligible = append(eligible, traj)
	}

	candidates := lk.candidates(frame, eligible, dets)
	matches := assignCandidates(candidates, lk.cfg.SearchRange, lk.cfg.Matching)

	matchedTracks := make([]bool, len(eligible))
	matchedDets := make([]bool, len(dets))
	for _, match := range matches {
		traj := eligible[match[0]]
		err := traj.extend(dets[match[1]])
		if err != nil {
			return errors.Wrapf(err, "Can't extend trajectory with id %d", traj.ID)
		}
		matchedTracks[match[0]] = true
		matchedDets[match[1]] = true
	}

	stillOpen := make([]*Trajectory, 0, len(eligible)+len(dets))
	for i, traj := range eligible {
		if !matchedTracks[i] {
			traj.miss(frame)
			if traj.DormantFrames() > lk.cfg.Memory {
				traj.close()
				continue
			}
		}
		stillOpen = append(stillOpen, traj)
	}

	// Register unmatched detections as new trajectories
	for i := range dets {
		if matchedDets[i] {
			continue
		}
		traj := newTrajectory(len(lk.trajectories), dets[i])
		if lk.cfg.Predict {
			traj.predictor = newKalmanPredictor(dets[i].Position(), frame, lk.dt)
		}
		lk.trajectories = append(lk.trajectories, traj)
		stillOpen = append(stillOpen, traj)
	}
	lk.open = stillOpen
	return nil
}

// candidates collects every (trajectory, detection) pair closer than SearchRange (inclusive)
func (lk *Linker) candidates(frame int, eligible []*Trajectory, dets []Detection) []candidatePair {
	if len(eligible) == 0 || len(dets) == 0 {
		return nil
	}
	positions := make([]Point, len(dets))
	for i := range dets {
		positions[i] = dets[i].Position()
	}
	index := newSpatialIndex(positions)
	candidates := make([]candidatePair, 0, len(eligible))
	for i, traj := range eligible {
		for _, nb := range index.within(traj.reference(frame), lk.cfg.SearchRange) {
			candidates = append(candidates, candidatePair{track: i, det: nb.idx, dist2: nb.dist2})
		}
	}
	return candidates
}

// Open returns trajectories that may still be extended, ordered by ID
func (lk *Linker) Open() []*Trajectory {
	result := make([]*Trajectory, len(lk.open))
	copy(result, lk.open)
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Finish closes every remaining trajectory and returns all trajectories ever created, ordered by ID.
// Linker can't be used after Finish.
func (lk *Linker) Finish() []*Trajectory {
	for _, traj := range lk.open {
		traj.close()
	}
	lk.open = lk.open[:0]
	lk.finished = true
	result := make([]*Trajectory, len(lk.trajectories))
	copy(result, lk.trajectories)
	return result
}

// Link runs Linker over per-frame groups. Groups must be ordered by strictly increasing frame index
func Link(perFrame []FrameDetections, cfg PipelineConfig) ([]*Trajectory, error) {
	linker, err := NewLinker(cfg)
	if err != nil {
		return nil, err
	}
	for _, group := range perFrame {
		err = linker.Next(group.Frame, group.Detections)
		if err != nil {
			return nil, errors.Wrapf(err, "can't link frame %d", group.Frame)
		}
	}
	return linker.Finish(), nil
}

// LinkDetections links flat detection table. The table does not need to be ordered:
// it is grouped by frame first (stable, so detection order inside a frame is kept)
func LinkDetections(dets []Detection, cfg PipelineConfig) ([]*Trajectory, error) {
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Frame < sorted[j].Frame
	})
	return Link(GroupByFrame(sorted), cfg)
}
