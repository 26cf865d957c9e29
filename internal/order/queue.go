package order

import (
	"container/heap"
	"sync"
)

// entry is a queue element: origin-class priority, then insertion sequence
// for FIFO fairness within a class.
type entry struct {
	priority int
	seq      uint64
	wo       *WorkOrder
}

type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(entry)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Queue is a thread-safe priority queue of work orders. Orders dequeue in
// ascending origin-class priority (feedback before telemetry before external
// before decomposition) and FIFO within a class.
//
// The queue is the one structure mutated from multiple logical contexts
// (initial routing, rework re-admission); a single coarse lock is sufficient
// because queue operations are cheap relative to dispatch.
type Queue struct {
	mu   sync.Mutex
	heap entryHeap
	seq  uint64
}

// NewQueue creates an empty work order queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue inserts a work order with priority derived from its origin class
// and a fresh monotonic sequence number.
func (q *Queue) Enqueue(wo *WorkOrder) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.heap, entry{priority: wo.Origin.Priority(), seq: q.seq, wo: wo})
	q.seq++
}

// EnqueueAll inserts multiple work orders in slice order.
func (q *Queue) EnqueueAll(orders []*WorkOrder) {
	for _, wo := range orders {
		q.Enqueue(wo)
	}
}

// Dequeue removes and returns the highest-priority work order, or nil when
// the queue is empty.
func (q *Queue) Dequeue() *WorkOrder {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(entry).wo
}

// DequeueReady pops entries whose dependencies are all in the satisfied set.
// Entries that are not yet ready are re-buffered without losing their
// ordering among themselves. Returns the ready orders in dequeue order.
func (q *Queue) DequeueReady(satisfied map[int]bool) []*WorkOrder {
	q.mu.Lock()
	defer q.mu.Unlock()

	var ready []*WorkOrder
	var deferred []entry
	for len(q.heap) > 0 {
		e := heap.Pop(&q.heap).(entry)
		if e.wo.ReadyGiven(satisfied) {
			ready = append(ready, e.wo)
		} else {
			deferred = append(deferred, e)
		}
	}
	// Original sequence numbers keep relative order among deferred entries.
	for _, e := range deferred {
		heap.Push(&q.heap, e)
	}
	return ready
}

// DequeueBatch removes up to n work orders in priority order.
func (q *Queue) DequeueBatch(n int) []*WorkOrder {
	var batch []*WorkOrder
	for i := 0; i < n; i++ {
		wo := q.Dequeue()
		if wo == nil {
			break
		}
		batch = append(batch, wo)
	}
	return batch
}

// Peek returns the highest-priority work order without removing it.
func (q *Queue) Peek() *WorkOrder {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil
	}
	return q.heap[0].wo
}

// Len returns the number of queued work orders.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// Empty reports whether the queue has no entries.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}
