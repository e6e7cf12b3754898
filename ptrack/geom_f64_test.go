package ptrack

import (
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestSquaredDistance(t *testing.T) {
	p1 := NewPoint(341, 264)
	p2 := NewPoint(421, 427)
	correnctAnswer := 181.57367
	answer := math.Sqrt(squaredDistance(p1, p2))
	if math.Abs(answer-correnctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correnctAnswer)
	}
	if squaredDistance(p1, p2) != squaredDistance(p2, p1) {
		t.Errorf("Squared distance is not symmetric: %v vs %v", squaredDistance(p1, p2), squaredDistance(p2, p1))
	}
}
