package ptrack

import "math"

// forbiddenCost marks cells of a cost matrix which must never be assigned
const forbiddenCost = 1e18

// solveAssignment finds the minimum total cost assignment of an n x m cost matrix
// (Kuhn-Munkres with row and column potentials, O(dim³)).
// Returns assignment[i] = column of row i, or -1 when row i is left unassigned.
// Cells with cost >= forbiddenCost are never part of the result. Callers that need every row to have
// a feasible choice (e.g. "no link" columns) must provide it: a row forced onto forbidden cells only
// ends up unassigned.
func solveAssignment(cost [][]float64) []int {
	n := len(cost)
	if n == 0 {
		return nil
	}
	m := len(cost[0])
	result := make([]int, n)
	for i := range result {
		result[i] = -1
	}
	if m == 0 {
		return result
	}

	// Square matrix. Padding cells cost nothing: a row or column matched to padding is left unassigned
	dim := maxInt(n, m)
	c := make([][]float64, dim)
	for i := 0; i < dim; i++ {
		c[i] = make([]float64, dim)
		if i < n {
			copy(c[i], cost[i])
		}
	}

	// 1-indexed, index 0 is a virtual column
	const inf = math.MaxFloat64 / 2
	u := make([]float64, dim+1)
	v := make([]float64, dim+1)
	p := make([]int, dim+1)
	way := make([]int, dim+1)
	minv := make([]float64, dim+1)
	used := make([]bool, dim+1)
	for i := 1; i <= dim; i++ {
		p[0] = i
		j0 := 0
		for j := 1; j <= dim; j++ {
			minv[j] = inf
			used[j] = false
		}
		for {
			used[j0] = true
			i0 := p[j0]
			delta := inf
			j1 := -1
			for j := 1; j <= dim; j++ {
				if used[j] {
					continue
				}
				cur := c[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			if j1 < 0 {
				break
			}
			for j := 0; j <= dim; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}
		for j0 != 0 {
			p[j0] = p[way[j0]]
			j0 = way[j0]
		}
	}

	for j := 1; j <= dim; j++ {
		row, col := p[j]-1, j-1
		if row < 0 || row >= n || col >= m {
			continue
		}
		if cost[row][col] >= forbiddenCost {
			continue
		}
		result[row] = col
	}
	return result
}
