package ptrack

import (
	"sort"
)

// linkScoreEpsilon makes a link at exactly SearchRange still cheaper than no link at all
const linkScoreEpsilon = 1e-6

// assignCandidates picks a set of disjoint (trajectory, detection) links from candidate pairs.
// Every candidate must already respect the distance cap.
// Returns pairs {trackIndex, detectionIndex} sorted by trackIndex.
func assignCandidates(candidates []candidatePair, searchRange float64, algorithm MatchingAlgorithm) [][2]int {
	if len(candidates) == 0 {
		return [][2]int{}
	}
	var matches [][2]int
	switch algorithm {
	case MatchingAlgorithmHungarian:
		matches = performHungarianMatching(candidates, searchRange)
	case MatchingAlgorithmGreedy:
		matches = performGreedyMatching(candidates)
	default:
		matches = performGreedyMatching(candidates)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i][0] < matches[j][0]
	})
	return matches
}

// performHungarianMatching splits candidate graph into connected subnets and solves each one
// with the Hungarian algorithm: minimum total squared displacement where an unlinked
// trajectory costs SearchRange².
//
// Cost matrix of a subnet is tracks x (detections + tracks). Detection columns hold d² (or
// forbiddenCost for pairs beyond SearchRange), the extra columns are "no link" slots.
func performHungarianMatching(candidates []candidatePair, searchRange float64) [][2]int {
	matches := make([][2]int, 0)
	unlinkedCost := searchRange * searchRange * (1 + linkScoreEpsilon)
	for _, subnet := range splitSubnets(candidates) {
		if len(subnet) == 1 {
			matches = append(matches, [2]int{subnet[0].track, subnet[0].det})
			continue
		}
		tracks, dets := subnetMembers(subnet)
		trackPos := make(map[int]int, len(tracks))
		for i, t := range tracks {
			trackPos[t] = i
		}
		detPos := make(map[int]int, len(dets))
		for j, d := range dets {
			detPos[d] = j
		}

		costMatrix := make([][]float64, len(tracks))
		for i := range costMatrix {
			costMatrix[i] = make([]float64, len(dets)+len(tracks))
			for j := range costMatrix[i] {
				if j < len(dets) {
					costMatrix[i][j] = forbiddenCost
				} else {
					costMatrix[i][j] = unlinkedCost
				}
			}
		}
		for _, c := range subnet {
			costMatrix[trackPos[c.track]][detPos[c.det]] = c.dist2
		}

		for trackIndex, detectionIndex := range solveAssignment(costMatrix) {
			// No-link slots are not links
			if detectionIndex < 0 || detectionIndex >= len(dets) {
				continue
			}
			matches = append(matches, [2]int{tracks[trackIndex], dets[detectionIndex]})
		}
	}
	return matches
}

// performGreedyMatching links the globally closest free pair first.
// Equal distances are resolved by lower trajectory index, then lower detection index.
func performGreedyMatching(candidates []candidatePair) [][2]int {
	priorityQueue := make(distanceHeap, 0, len(candidates))
	for _, c := range candidates {
		priorityQueue.Push(c)
	}
	// We need to prevent double update of trajectories and double use of detections
	reservedTracks := make(map[int]struct{})
	reservedDets := make(map[int]struct{})
	matches := make([][2]int, 0)
	for priorityQueue.Len() > 0 {
		c := priorityQueue.Pop()
		if _, ok := reservedTracks[c.track]; ok {
			continue
		}
		if _, ok := reservedDets[c.det]; ok {
			continue
		}
		reservedTracks[c.track] = struct{}{}
		reservedDets[c.det] = struct{}{}
		matches = append(matches, [2]int{c.track, c.det})
	}
	return matches
}

// splitSubnets groups candidates into connected components of the bipartite candidate graph.
// Subnets are ordered by their smallest trajectory index.
func splitSubnets(candidates []candidatePair) [][]candidatePair {
	uf := newUnionFind()
	for _, c := range candidates {
		uf.union(trackNode(c.track), detNode(c.det))
	}
	groups := make(map[int][]candidatePair)
	roots := make([]int, 0)
	for _, c := range candidates {
		root := uf.find(trackNode(c.track))
		if _, ok := groups[root]; !ok {
			roots = append(roots, root)
		}
		groups[root] = append(groups[root], c)
	}
	subnets := make([][]candidatePair, 0, len(roots))
	for _, root := range roots {
		subnets = append(subnets, groups[root])
	}
	return subnets
}

func subnetMembers(subnet []candidatePair) (tracks []int, dets []int) {
	seenTracks := make(map[int]struct{})
	seenDets := make(map[int]struct{})
	for _, c := range subnet {
		if _, ok := seenTracks[c.track]; !ok {
			seenTracks[c.track] = struct{}{}
			tracks = append(tracks, c.track)
		}
		if _, ok := seenDets[c.det]; !ok {
			seenDets[c.det] = struct{}{}
			dets = append(dets, c.det)
		}
	}
	sort.Ints(tracks)
	sort.Ints(dets)
	return tracks, dets
}

// Trajectory and detection nodes share one key space: even keys are trajectories, odd are detections
func trackNode(i int) int { return 2 * i }
func detNode(i int) int   { return 2*i + 1 }

type unionFind struct {
	parent map[int]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[int]int)}
}

func (uf *unionFind) find(x int) int {
	p, ok := uf.parent[x]
	if !ok {
		uf.parent[x] = x
		return x
	}
	if p == x {
		return x
	}
	root := uf.find(p)
	uf.parent[x] = root
	return root
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	// Smaller key becomes the root so subnet roots are deterministic
	if rb < ra {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
}
