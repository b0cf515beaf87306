package corert

import (
	"container/heap"
	"time"
)

// timerNode is one pending timer. index tracks its position in the heap
// so timerHeap.remove can locate and remove it in O(log n) instead of
// requiring a linear scan; it is -1 when the node is not in the heap.
type timerNode struct {
	deadline time.Time
	seq      uint64 // tie-break for equal deadlines, assigned in insertion order
	fn       func()
	index    int
}

// timerHeap is a container/heap min-heap ordered by deadline, then by
// insertion order for nodes sharing a deadline.
type timerHeap struct {
	nodes   []*timerNode
	nextSeq uint64
}

func (h *timerHeap) Len() int { return len(h.nodes) }

func (h *timerHeap) Less(i, j int) bool {
	a, b := h.nodes[i], h.nodes[j]
	if a.deadline.Equal(b.deadline) {
		return a.seq < b.seq
	}
	return a.deadline.Before(b.deadline)
}

func (h *timerHeap) Swap(i, j int) {
	h.nodes[i], h.nodes[j] = h.nodes[j], h.nodes[i]
	h.nodes[i].index = i
	h.nodes[j].index = j
}

func (h *timerHeap) Push(x any) {
	n := x.(*timerNode)
	n.index = len(h.nodes)
	h.nodes = append(h.nodes, n)
}

func (h *timerHeap) Pop() any {
	old := h.nodes
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	h.nodes = old[:n-1]
	return item
}

// insert schedules fn to run at deadline and returns the node handle,
// which callers may pass to remove to cancel it before it fires.
func (h *timerHeap) insert(deadline time.Time, fn func()) *timerNode {
	h.nextSeq++
	n := &timerNode{deadline: deadline, seq: h.nextSeq, fn: fn}
	heap.Push(h, n)
	return n
}

// remove cancels a pending timer. It is a no-op if the node has already
// fired or was already removed.
func (h *timerHeap) remove(n *timerNode) {
	if n.index < 0 || n.index >= len(h.nodes) || h.nodes[n.index] != n {
		return
	}
	heap.Remove(h, n.index)
}

// peekDeadline returns the earliest deadline in the heap, if any.
func (h *timerHeap) peekDeadline() (time.Time, bool) {
	if len(h.nodes) == 0 {
		return time.Time{}, false
	}
	return h.nodes[0].deadline, true
}

// popReady pops and returns every node whose deadline is <= now, in
// deadline order.
func (h *timerHeap) popReady(now time.Time) []*timerNode {
	var ready []*timerNode
	for len(h.nodes) > 0 && !h.nodes[0].deadline.After(now) {
		ready = append(ready, heap.Pop(h).(*timerNode))
	}
	return ready
}
