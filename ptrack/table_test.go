package ptrack

import (
	"testing"
)

func TestBuildTable(t *testing.T) {
	trajs, err := LinkDetections([]Detection{
		det(0, 50, 50), det(0, 10, 10),
		det(1, 51, 50), det(1, 11, 10),
		det(2, 12, 10),
	}, linkerConfig(5, 0))
	if err != nil {
		t.Error(err)
		return
	}
	rows := BuildTable(trajs)
	correct := []Row{
		{TrajectoryID: 0, Frame: 0, X: 50, Y: 50, Mass: 100},
		{TrajectoryID: 0, Frame: 1, X: 51, Y: 50, Mass: 100},
		{TrajectoryID: 1, Frame: 0, X: 10, Y: 10, Mass: 100},
		{TrajectoryID: 1, Frame: 1, X: 11, Y: 10, Mass: 100},
		{TrajectoryID: 1, Frame: 2, X: 12, Y: 10, Mass: 100},
	}
	if len(rows) != len(correct) {
		t.Errorf("Wrong number of rows: %d, expected: %d", len(rows), len(correct))
		return
	}
	for i := range rows {
		if rows[i] != correct[i] {
			t.Errorf("Row %d: %+v, expected: %+v", i, rows[i], correct[i])
		}
	}
	tracks := GroupRows(rows)
	if len(tracks[1]) != 3 {
		t.Errorf("Wrong track length: %d, expected: %d", len(tracks[1]), 3)
	}
}
