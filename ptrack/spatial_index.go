package ptrack

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// indexedPoint is a 2-D kdtree.Comparable carrying the index of its owner
type indexedPoint struct {
	Point
	idx int
}

// Compare satisfies the axis comparisons method of the kdtree.Comparable interface.
func (p indexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexedPoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions to be considered.
func (p indexedPoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between the receiver and c.
func (p indexedPoint) Distance(c kdtree.Comparable) float64 {
	return squaredDistance(p.Point, c.(indexedPoint).Point)
}

// indexedPoints is a collection of indexedPoint that satisfies kdtree.Interface.
type indexedPoints []indexedPoint

func (p indexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexedPoints) Len() int                              { return len(p) }
func (p indexedPoints) Pivot(d kdtree.Dim) int                { return indexedPlane{indexedPoints: p, Dim: d}.Pivot() }
func (p indexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// indexedPlane is required to help indexedPoints.
type indexedPlane struct {
	kdtree.Dim
	indexedPoints
}

func (p indexedPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.indexedPoints[i].X < p.indexedPoints[j].X
	case 1:
		return p.indexedPoints[i].Y < p.indexedPoints[j].Y
	default:
		panic("illegal dimension")
	}
}
func (p indexedPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p indexedPlane) Slice(start, end int) kdtree.SortSlicer {
	p.indexedPoints = p.indexedPoints[start:end]
	return p
}
func (p indexedPlane) Swap(i, j int) {
	p.indexedPoints[i], p.indexedPoints[j] = p.indexedPoints[j], p.indexedPoints[i]
}

// spatialIndex answers "which points lie within r of q" queries
type spatialIndex struct {
	tree *kdtree.Tree
}

// neighbor is a result of spatialIndex.within
type neighbor struct {
	idx   int
	dist2 float64
}

// newSpatialIndex builds kd-tree over points. The slice is copied since kdtree partitions its input
func newSpatialIndex(points []Point) *spatialIndex {
	items := make(indexedPoints, len(points))
	for i, p := range points {
		items[i] = indexedPoint{Point: p, idx: i}
	}
	return &spatialIndex{tree: kdtree.New(items, false)}
}

// within returns indices of points with squared distance to q <= r*r, ordered by distance then index
func (si *spatialIndex) within(q Point, r float64) []neighbor {
	if si.tree == nil || si.tree.Root == nil {
		return nil
	}
	keeper := kdtree.NewDistKeeper(r * r)
	si.tree.NearestSet(keeper, indexedPoint{Point: q, idx: -1})
	result := make([]neighbor, 0, keeper.Len())
	for _, c := range keeper.Heap {
		if c.Comparable == nil {
			continue
		}
		p := c.Comparable.(indexedPoint)
		result = append(result, neighbor{idx: p.idx, dist2: c.Dist})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].dist2 == result[j].dist2 {
			return result[i].idx < result[j].idx
		}
		return result[i].dist2 < result[j].dist2
	})
	return result
}
