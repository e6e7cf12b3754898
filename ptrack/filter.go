package ptrack

// FilterStubs keeps trajectories with at least minLength detections.
// Inputs are not modified: kept trajectories are the very same values, order is preserved.
func FilterStubs(trajs []*Trajectory, minLength int) []*Trajectory {
	filtered := make([]*Trajectory, 0, len(trajs))
	for _, traj := range trajs {
		if traj == nil {
			continue
		}
		if traj.Len() >= minLength {
			filtered = append(filtered, traj)
		}
	}
	return filtered
}
