package scheduler

import "time"

// fire is one pending poll deadline.
type fire struct {
	at     time.Time
	areaID string
	gen    uint64
}

// fireHeap is a min-heap ordered by fire time.
type fireHeap []fire

func (h fireHeap) Len() int           { return len(h) }
func (h fireHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h fireHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *fireHeap) Push(x any)        { *h = append(*h, x.(fire)) }
func (h *fireHeap) Pop() any {
	old := *h
	n := len(old)
	f := old[n-1]
	*h = old[:n-1]
	return f
}

func (h fireHeap) peek() (fire, bool) {
	if len(h) == 0 {
		return fire{}, false
	}
	return h[0], true
}
