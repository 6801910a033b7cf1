// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package staging

import (
	"container/heap"

	"github.com/wuwei-labs/antegen-sub001/chain"
)

// wakeEntry is one scheduled wake point in a wakeQueue.
type wakeEntry struct {
	value  int64
	thread chain.Address
}

// wakeQueue is a container/heap min-heap ordered by value, used for the
// time/slot/epoch ordered structures described in spec §4.E. Updates and
// cancellations are handled by lazy invalidation against current: an
// entry popped off the heap is discarded if it no longer matches the
// thread's latest registered value, rather than searched for and removed
// from the heap directly.
type wakeQueue struct {
	entries []wakeEntry
	current map[chain.Address]int64
}

func newWakeQueue() *wakeQueue {
	return &wakeQueue{current: make(map[chain.Address]int64)}
}

func (q *wakeQueue) Len() int            { return len(q.entries) }
func (q *wakeQueue) Less(i, j int) bool  { return q.entries[i].value < q.entries[j].value }
func (q *wakeQueue) Swap(i, j int)       { q.entries[i], q.entries[j] = q.entries[j], q.entries[i] }
func (q *wakeQueue) Push(x interface{})  { q.entries = append(q.entries, x.(wakeEntry)) }
func (q *wakeQueue) Pop() interface{} {
	old := q.entries
	n := len(old)
	item := old[n-1]
	q.entries = old[:n-1]
	return item
}

// Upsert records thread's next wake point, superseding any previously
// scheduled one.
func (q *wakeQueue) Upsert(thread chain.Address, value int64) {
	q.current[thread] = value
	heap.Push(q, wakeEntry{value: value, thread: thread})
}

// Cancel removes thread's pending wake, if any.
func (q *wakeQueue) Cancel(thread chain.Address) {
	delete(q.current, thread)
}

// PopReady returns every thread whose latest registered wake value is
// <= now, removing them from the live set. Entries still in the heap for
// those threads are left in place and discarded lazily when reached.
func (q *wakeQueue) PopReady(now int64) []chain.Address {
	var ready []chain.Address
	for q.Len() > 0 {
		top := q.entries[0]
		cur, live := q.current[top.thread]
		if !live || cur != top.value {
			heap.Pop(q) // stale: superseded or canceled
			continue
		}
		if top.value > now {
			break
		}
		heap.Pop(q)
		delete(q.current, top.thread)
		ready = append(ready, top.thread)
	}
	return ready
}
