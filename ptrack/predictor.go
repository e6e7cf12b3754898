package ptrack

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// kalmanPredictor estimates where a particle will be in a future frame.
// It wraps 2D constant-velocity Kalman filter over the particle center.
type kalmanPredictor struct {
	tracker *kalman_filter.Kalman2D
	// Frame which tracker state currently refers to
	frame int
	// Last state estimate
	state Point
}

func newKalmanPredictor(start Point, frame int, dt float64) *kalmanPredictor {
	/* Kalman filter props */
	// Brownian particles have no deterministic acceleration
	ux := 0.0
	uy := 0.0
	stdDevA := 2.0
	stdDevMx := 0.1
	stdDevMy := 0.1
	kf := kalman_filter.NewKalman2D(dt, ux, uy, stdDevA, stdDevMx, stdDevMy, kalman_filter.WithState2D(start.X, start.Y))
	return &kalmanPredictor{
		tracker: kf,
		frame:   frame,
		state:   start,
	}
}

// predictAt advances the filter up to frame and returns predicted position.
// Frames at or before the current state frame return the current state.
func (kp *kalmanPredictor) predictAt(frame int) Point {
	for kp.frame < frame {
		kp.tracker.Predict()
		kp.frame++
		x, y := kp.tracker.GetState()
		kp.state = Point{X: x, Y: y}
	}
	return kp.state
}

// update corrects filter with measured position of the frame the filter was advanced to
func (kp *kalmanPredictor) update(measurement Point) error {
	err := kp.tracker.Update(measurement.X, measurement.Y)
	if err != nil {
		return errors.Wrap(err, "Can't update particle predictor")
	}
	x, y := kp.tracker.GetState()
	kp.state = Point{X: x, Y: y}
	return nil
}
