// Package queue provides a value-based binary heap used for pruning-threshold
// selection and top-N ranking.
package queue

import "github.com/hupe1980/recgo/core"

// Item is one element of the priority queue.
type Item struct {
	Index core.ItemIndex // payload: the item index the priority belongs to
	Score float64        // priority
}

// PriorityQueue is a value-based binary heap over Items.
//
// Ties on Score are broken by Index: for a min-heap the larger index sorts
// first, so bounded selection evicts the larger index and retains the smaller
// one. This keeps top-N output deterministic under equal scores.
type PriorityQueue struct {
	isMaxHeap bool
	items     []Item
}

// NewMin initializes a min-heap with the given capacity.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: false, items: make([]Item, 0, capacity)}
}

// NewMax initializes a max-heap with the given capacity.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of elements in the queue.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// Top returns the top element without removing it.
func (pq *PriorityQueue) Top() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) Push(item Item) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// Pop removes and returns the top element.
func (pq *PriorityQueue) Pop() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items[n-1] = Item{}
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

// PushBounded inserts an item into a min-heap while keeping at most k
// elements, retaining the k largest scores seen. Items not beating the
// current minimum are dropped.
func (pq *PriorityQueue) PushBounded(item Item, k int) {
	if k <= 0 {
		return
	}
	if len(pq.items) < k {
		pq.Push(item)
		return
	}
	if pq.less(pq.items[0], item) {
		pq.Push(item)
		pq.Pop()
	}
}

// Reset clears the queue for reuse.
func (pq *PriorityQueue) Reset() {
	pq.items = pq.items[:0]
}

func (pq *PriorityQueue) less(a, b Item) bool {
	if a.Score != b.Score {
		if pq.isMaxHeap {
			return a.Score > b.Score
		}
		return a.Score < b.Score
	}
	if pq.isMaxHeap {
		return a.Index < b.Index
	}
	return a.Index > b.Index
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(pq.items[i], pq.items[p]) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && pq.less(pq.items[r], pq.items[l]) {
			best = r
		}
		if !pq.less(pq.items[best], pq.items[i]) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
