package scheduler

import (
	"sort"
	"time"

	"github.com/fastmcp-me/mcp-image/operation"
)

// waiter is a queued operation blocked on admission. It is owned by the
// wait-list until promoted or removed; the ready channel is closed exactly
// once, under the manager's queue mutex, when the waiter is promoted.
type waiter struct {
	op         *operation.Operation
	enqueuedAt time.Time
	seq        uint64
	ready      chan struct{}
}

// waitList holds operations waiting for resources, ordered by priority
// descending then arrival ascending (FIFO within a priority band). It is
// not safe for concurrent use; the Manager guards it with its queue mutex,
// coupled with ledger admission so promotions never act on stale capacity.
type waitList struct {
	entries []*waiter
}

// insert places w in order: after all entries with priority >= w's
// priority, preserving arrival order within the band.
func (q *waitList) insert(w *waiter) {
	i := sort.Search(len(q.entries), func(i int) bool {
		e := q.entries[i]
		if e.op.Priority != w.op.Priority {
			return e.op.Priority < w.op.Priority
		}
		return e.seq > w.seq
	})
	q.entries = append(q.entries, nil)
	copy(q.entries[i+1:], q.entries[i:])
	q.entries[i] = w
}

// promote scans from the head and returns the first waiter whose
// requirements the ledger admits right now, removing it from the list.
// Entries that do not fit are skipped so a large job at the head does not
// block a smaller one behind it; the skipped entry keeps its position.
// Returns nil when nothing currently fits.
func (q *waitList) promote(ledger *Ledger) *waiter {
	for i, w := range q.entries {
		if ledger.TryAdmit(w.op.Requirements) {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return w
		}
	}
	return nil
}

// remove deletes w from the list. Returns false if w is no longer present,
// which means it was already promoted.
func (q *waitList) remove(w *waiter) bool {
	for i, e := range q.entries {
		if e == w {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// len returns the number of waiting operations.
func (q *waitList) len() int { return len(q.entries) }

// oldestWait returns how long the longest-waiting entry has been queued.
func (q *waitList) oldestWait(now time.Time) time.Duration {
	var oldest time.Duration
	for _, w := range q.entries {
		if d := now.Sub(w.enqueuedAt); d > oldest {
			oldest = d
		}
	}
	return oldest
}
