package ptrack

import (
	"sort"
)

// Row is one line of the trajectory table
type Row struct {
	TrajectoryID int
	Frame        int
	X            float64
	Y            float64
	Mass         float64
	Size         float64
	Ecc          float64
}

// BuildTable flattens trajectories into rows sorted by (trajectory ID, frame)
func BuildTable(trajs []*Trajectory) []Row {
	total := 0
	for _, traj := range trajs {
		total += traj.Len()
	}
	rows := make([]Row, 0, total)
	for _, traj := range trajs {
		for _, det := range traj.Detections {
			rows = append(rows, Row{
				TrajectoryID: traj.ID,
				Frame:        det.Frame,
				X:            det.X,
				Y:            det.Y,
				Mass:         det.Mass,
				Size:         det.Size,
				Ecc:          det.Ecc,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TrajectoryID != rows[j].TrajectoryID {
			return rows[i].TrajectoryID < rows[j].TrajectoryID
		}
		return rows[i].Frame < rows[j].Frame
	})
	return rows
}

// GroupRows splits a table sorted by trajectory ID into per-trajectory position tracks
func GroupRows(rows []Row) map[int][]Point {
	tracks := make(map[int][]Point)
	for _, row := range rows {
		tracks[row.TrajectoryID] = append(tracks[row.TrajectoryID], Point{X: row.X, Y: row.Y})
	}
	return tracks
}
