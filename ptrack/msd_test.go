package ptrack

import (
	"errors"
	"math"
	"testing"
)

func trajectoryOf(id int, dets ...Detection) *Trajectory {
	traj := newTrajectory(id, dets[0])
	traj.Detections = append(traj.Detections, dets[1:]...)
	return traj
}

func TestIMSDLinearMover(t *testing.T) {
	dets := make([]Detection, 10)
	for i := range dets {
		dets[i] = det(i, float64(i), 0)
	}
	cal := Calibration{MicronsPerPixel: 0.1, FPS: 10}
	msd := IMSD(trajectoryOf(0, dets...), cal, 5)
	if len(msd) != 5 {
		t.Errorf("Wrong number of lags: %d, expected: %d", len(msd), 5)
		return
	}
	for _, p := range msd {
		// 1 px/frame at 0.1 µm/px and 10 fps gives MSD = t²
		if math.Abs(p.MSD-p.LagTime*p.LagTime) > 1e-9 {
			t.Errorf("Wrong MSD at lag %d: %v, expected: %v", p.Lag, p.MSD, p.LagTime*p.LagTime)
		}
		if p.Count != 10-p.Lag {
			t.Errorf("Wrong pair count at lag %d: %d, expected: %d", p.Lag, p.Count, 10-p.Lag)
		}
	}
	fit, err := FitDiffusion(msd, 5)
	if err != nil {
		t.Error(err)
		return
	}
	if math.Abs(fit.Alpha-2) > 1e-6 {
		t.Errorf("Wrong alpha: %v, expected: %v", fit.Alpha, 2)
	}
	// Slope of t² over t = 0.1..0.5 is 2*mean(t) = 0.6
	if math.Abs(fit.D-0.15) > 1e-9 {
		t.Errorf("Wrong D: %v, expected: %v", fit.D, 0.15)
	}
}

func TestIMSDGaps(t *testing.T) {
	traj := trajectoryOf(0, det(0, 0, 0), det(1, 1, 0), det(3, 3, 0))
	msd := IMSD(traj, Calibration{MicronsPerPixel: 1, FPS: 1}, 0)
	correct := []MSDPoint{
		{Lag: 1, LagTime: 1, MSD: 1, Count: 1},
		{Lag: 2, LagTime: 2, MSD: 4, Count: 1},
		{Lag: 3, LagTime: 3, MSD: 9, Count: 1},
	}
	if len(msd) != len(correct) {
		t.Errorf("Wrong number of lags: %d, expected: %d", len(msd), len(correct))
		return
	}
	for i := range msd {
		if msd[i] != correct[i] {
			t.Errorf("Lag %d: %+v, expected: %+v", i, msd[i], correct[i])
		}
	}
}

func TestEMSDStationary(t *testing.T) {
	trajs := []*Trajectory{
		trajectoryOf(0, det(0, 5, 5), det(1, 5, 5), det(2, 5, 5)),
		trajectoryOf(1, det(0, 9, 1), det(1, 9, 1)),
	}
	msd := EMSD(trajs, Calibration{MicronsPerPixel: 0.1, FPS: 10}, 10)
	if len(msd) != 2 {
		t.Errorf("Wrong number of lags: %d, expected: %d", len(msd), 2)
		return
	}
	if msd[0].Count != 3 {
		t.Errorf("Wrong pair count: %d, expected: %d", msd[0].Count, 3)
	}
	for _, p := range msd {
		if p.MSD != 0 {
			t.Errorf("Stationary particles should have zero MSD, got: %v", p.MSD)
		}
	}
	fit, err := FitDiffusion(msd, 5)
	if err != nil {
		t.Error(err)
		return
	}
	if fit.D != 0 || !math.IsNaN(fit.Alpha) {
		t.Errorf("Wrong fit of stationary particles: %+v", fit)
	}
}

func TestFitDiffusionBrownian(t *testing.T) {
	d := 0.35
	msd := make([]MSDPoint, 8)
	for i := range msd {
		lagTime := float64(i+1) * 0.05
		msd[i] = MSDPoint{Lag: i + 1, LagTime: lagTime, MSD: 4 * d * lagTime, Count: 10}
	}
	fit, err := FitDiffusion(msd, 5)
	if err != nil {
		t.Error(err)
		return
	}
	if math.Abs(fit.D-d) > 1e-9 {
		t.Errorf("Wrong D: %v, expected: %v", fit.D, d)
	}
	if math.Abs(fit.Alpha-1) > 1e-9 {
		t.Errorf("Wrong alpha: %v, expected: %v", fit.Alpha, 1)
	}
	if fit.Lags != 5 {
		t.Errorf("Wrong number of lags: %d, expected: %d", fit.Lags, 5)
	}

	_, err = FitDiffusion(msd[:1], 5)
	if !errors.Is(err, ErrNotEnoughLags) {
		t.Errorf("Single lag should give ErrNotEnoughLags, got: %v", err)
	}
}
