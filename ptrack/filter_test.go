package ptrack

import (
	"reflect"
	"testing"
)

func TestFilterStubs(t *testing.T) {
	trajs := make([]*Trajectory, 0)
	for length := 1; length <= 8; length++ {
		traj := newTrajectory(length-1, det(0, float64(length), 0))
		for f := 1; f < length; f++ {
			traj.Detections = append(traj.Detections, det(f, float64(length), float64(f)))
		}
		trajs = append(trajs, traj)
	}
	snapshot := make([]Trajectory, len(trajs))
	for i := range trajs {
		snapshot[i] = *trajs[i]
		snapshot[i].Detections = append([]Detection(nil), trajs[i].Detections...)
	}

	filtered := FilterStubs(trajs, 5)
	if len(filtered) != 4 {
		t.Errorf("Wrong number of trajectories: %d, expected: %d", len(filtered), 4)
		return
	}
	for _, traj := range filtered {
		if traj.Len() < 5 {
			t.Errorf("Trajectory %d is too short: %d", traj.ID, traj.Len())
		}
		if !reflect.DeepEqual(*traj, snapshot[traj.ID]) {
			t.Errorf("Trajectory %d has been changed", traj.ID)
		}
	}
	if len(trajs) != 8 {
		t.Errorf("Input slice must not change")
	}
}
