package ptrack

// peak is an integer-position local maximum
type peak struct {
	x     int
	y     int
	value float64
	// Row-major position, used to break ties between equally bright peaks
	order int
	index int
}

// peakHeap implements heap.Interface for max-heap by value
type peakHeap []*peak

func (h peakHeap) Len() int { return len(h) }

// Less returns true if i is brighter (max-heap). Equal values keep row-major order
func (h peakHeap) Less(i, j int) bool {
	if h[i].value == h[j].value {
		return h[i].order < h[j].order
	}
	return h[i].value > h[j].value
}

func (h peakHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *peakHeap) Push(x any) {
	n := len(*h)
	item := x.(*peak)
	item.index = n
	*h = append(*h, item)
}

func (h *peakHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}
