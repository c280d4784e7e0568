// Package timer provides the deferred-callback queue that drives every time-based combat effect.
// Simulation time is a time.Duration measured from the start of the match; it only advances when
// the owner calls Advance or AdvanceTo, which makes the queue usable as a virtual clock in tests.
package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Handle identifies one scheduled callback.
type Handle struct {
	q         *Queue
	at        time.Duration
	seq       uint64
	fn        func()
	index     int
	cancelled bool
	fired     bool
}

// At returns the simulation time the callback is scheduled for.
func (h *Handle) At() time.Duration { return h.at }

// Cancel prevents the callback from firing. Safe to call multiple times and after firing.
//
// Postcondition: returns true iff this call stopped a callback that had not yet fired.
func (h *Handle) Cancel() bool {
	if h == nil || h.q == nil {
		return false
	}
	h.q.mu.Lock()
	defer h.q.mu.Unlock()
	if h.cancelled || h.fired {
		return false
	}
	h.cancelled = true
	if h.index >= 0 {
		heap.Remove(&h.q.entries, h.index)
	}
	return true
}

// Pending reports whether the callback is still waiting to fire.
func (h *Handle) Pending() bool {
	if h == nil || h.q == nil {
		return false
	}
	h.q.mu.Lock()
	defer h.q.mu.Unlock()
	return !h.cancelled && !h.fired
}

// Queue is a priority queue of callbacks ordered by fire time, FIFO among equal times.
// Scheduling and cancellation are safe for concurrent use. Callbacks run on the goroutine that
// calls Advance/AdvanceTo, without the queue lock held, so they may schedule or cancel freely.
type Queue struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	entries entryHeap
}

// NewQueue creates an empty Queue at simulation time zero.
func NewQueue() *Queue {
	return &Queue{}
}

// Now returns the current simulation time.
func (q *Queue) Now() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.now
}

// NowMillis returns the current simulation time in milliseconds.
func (q *Queue) NowMillis() int64 {
	return q.Now().Milliseconds()
}

// Schedule arranges for fn to run once the simulation reaches Now()+after.
// Negative delays are treated as zero.
//
// Precondition: fn must not be nil.
// Postcondition: returns a pending Handle.
func (q *Queue) Schedule(after time.Duration, fn func()) *Handle {
	if after < 0 {
		after = 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	h := &Handle{q: q, at: q.now + after, seq: q.seq, fn: fn}
	heap.Push(&q.entries, h)
	return h
}

// Len returns the number of pending callbacks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Advance moves simulation time forward by d, firing every callback that falls due.
func (q *Queue) Advance(d time.Duration) int {
	return q.AdvanceTo(q.Now() + d)
}

// AdvanceTo fires, in time order, every callback scheduled at or before t, including callbacks
// scheduled by other callbacks during the advance. Each callback observes Now() equal to its own
// fire time. Times earlier than Now() are ignored.
//
// Postcondition: Now() == max(previous Now(), t); returns the number of callbacks fired.
func (q *Queue) AdvanceTo(t time.Duration) int {
	fired := 0
	for {
		q.mu.Lock()
		if len(q.entries) == 0 || q.entries[0].at > t {
			if t > q.now {
				q.now = t
			}
			q.mu.Unlock()
			return fired
		}
		h := heap.Pop(&q.entries).(*Handle)
		if h.at > q.now {
			q.now = h.at
		}
		h.fired = true
		q.mu.Unlock()

		h.fn()
		fired++
	}
}

type entryHeap []*Handle

func (e entryHeap) Len() int { return len(e) }

func (e entryHeap) Less(i, j int) bool {
	if e[i].at == e[j].at {
		return e[i].seq < e[j].seq
	}
	return e[i].at < e[j].at
}

func (e entryHeap) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
	e[i].index = i
	e[j].index = j
}

func (e *entryHeap) Push(x any) {
	h := x.(*Handle)
	h.index = len(*e)
	*e = append(*e, h)
}

func (e *entryHeap) Pop() any {
	old := *e
	n := len(old)
	h := old[n-1]
	old[n-1] = nil
	h.index = -1
	*e = old[:n-1]
	return h
}
