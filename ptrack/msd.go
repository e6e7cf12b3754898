package ptrack

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// ErrNotEnoughLags is returned when there are less than two usable MSD points to fit
var ErrNotEnoughLags = errors.New("not enough lags to fit")

// MSDPoint is mean squared displacement for a single lag
type MSDPoint struct {
	// Lag in frames
	Lag int
	// Lag in seconds
	LagTime float64
	// Mean squared displacement, µm²
	MSD float64
	// Number of displacement pairs contributing to MSD
	Count int
}

// DiffusionFit is result of fitting MSD curve
type DiffusionFit struct {
	// Diffusion coefficient in µm²/s for 2-D motion: MSD = 4*D*t + Offset
	D float64
	// Intercept of the linear fit, µm². Localization error shows up here
	Offset float64
	// Exponent of MSD ~ t^Alpha. NaN when log-log fit is impossible
	Alpha float64
	// Number of lags used
	Lags int
}

// IMSD computes MSD of a single trajectory for lags 1..maxLag frames.
// Gaps in frame indices are honoured: a pair is counted only for the exact frame difference.
// maxLag <= 0 means the whole trajectory span. Only lags having at least one pair are returned.
func IMSD(traj *Trajectory, cal Calibration, maxLag int) []MSDPoint {
	sums, counts, span := displacementSums(traj, cal, maxLag)
	points := make([]MSDPoint, 0, span)
	for lag := 1; lag <= span; lag++ {
		if counts[lag] == 0 {
			continue
		}
		points = append(points, MSDPoint{
			Lag:     lag,
			LagTime: float64(lag) / cal.FPS,
			MSD:     sums[lag] / float64(counts[lag]),
			Count:   counts[lag],
		})
	}
	return points
}

// EMSD computes ensemble MSD: per lag mean over all pairs of all trajectories
// (each trajectory weighted by its pair count)
func EMSD(trajs []*Trajectory, cal Calibration, maxLag int) []MSDPoint {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	longest := 0
	for _, traj := range trajs {
		s, c, span := displacementSums(traj, cal, maxLag)
		for lag := 1; lag <= span; lag++ {
			sums[lag] += s[lag]
			counts[lag] += c[lag]
		}
		longest = maxInt(longest, span)
	}
	points := make([]MSDPoint, 0, longest)
	for lag := 1; lag <= longest; lag++ {
		if counts[lag] == 0 {
			continue
		}
		points = append(points, MSDPoint{
			Lag:     lag,
			LagTime: float64(lag) / cal.FPS,
			MSD:     sums[lag] / float64(counts[lag]),
			Count:   counts[lag],
		})
	}
	return points
}

// displacementSums returns per lag sums of squared displacements (µm²), pair counts and the effective max lag
func displacementSums(traj *Trajectory, cal Calibration, maxLag int) ([]float64, []int, int) {
	if traj == nil || traj.Len() < 2 {
		return nil, nil, 0
	}
	span := traj.LastFrame() - traj.FirstFrame()
	if maxLag > 0 && maxLag < span {
		span = maxLag
	}
	sums := make([]float64, span+1)
	counts := make([]int, span+1)
	byFrame := make(map[int]Point, traj.Len())
	for _, det := range traj.Detections {
		byFrame[det.Frame] = det.Position()
	}
	mpp2 := cal.MicronsPerPixel * cal.MicronsPerPixel
	for _, det := range traj.Detections {
		for lag := 1; lag <= span; lag++ {
			next, ok := byFrame[det.Frame+lag]
			if !ok {
				continue
			}
			sums[lag] += squaredDistance(det.Position(), next) * mpp2
			counts[lag]++
		}
	}
	return sums, counts, span
}

// FitDiffusion fits the first nLags points of MSD curve.
// Linear fit MSD = 4*D*t + Offset gives D, log-log fit gives Alpha.
func FitDiffusion(msd []MSDPoint, nLags int) (DiffusionFit, error) {
	if nLags <= 0 || nLags > len(msd) {
		nLags = len(msd)
	}
	if nLags < 2 {
		return DiffusionFit{}, errors.Wrapf(ErrNotEnoughLags, "got %d lags", nLags)
	}
	x := make([]float64, nLags)
	y := make([]float64, nLags)
	for i := 0; i < nLags; i++ {
		x[i] = msd[i].LagTime
		y[i] = msd[i].MSD
	}
	offset, slope := stat.LinearRegression(x, y, nil, false)
	fit := DiffusionFit{
		D:      slope / 4.0,
		Offset: offset,
		Alpha:  math.NaN(),
		Lags:   nLags,
	}

	logX := make([]float64, 0, nLags)
	logY := make([]float64, 0, nLags)
	for i := 0; i < nLags; i++ {
		if x[i] > 0 && y[i] > 0 {
			logX = append(logX, math.Log(x[i]))
			logY = append(logY, math.Log(y[i]))
		}
	}
	if len(logX) >= 2 {
		_, fit.Alpha = stat.LinearRegression(logX, logY, nil, false)
	}
	return fit, nil
}
