package pool

// ============================================================================
// In-flight table - insertion-ordered bookkeeping of unfinished tasks
// ============================================================================
//
// Adapted from the teacher's jobmanager hybrid design: a map gives O(1)
// membership/removal by id, and a parallel slice of ids (walked by a
// monotonic cursor) gives amortized O(1) access to the earliest surviving
// entry without ever compacting the slice. Each id is visited by the
// cursor at most once over the table's lifetime.
//
// ============================================================================

import "github.com/mrafferty/forkmap/pkg/task"

type inflightTable struct {
	order []uint64
	byID  map[uint64]task.Task
	pos   int
}

func newInflightTable() *inflightTable {
	return &inflightTable{byID: make(map[uint64]task.Task)}
}

// Add records t as in-flight.
func (t *inflightTable) Add(tk task.Task) {
	t.byID[tk.ID] = tk
	t.order = append(t.order, tk.ID)
}

// Remove drops id from the table, wherever it sits in insertion order.
func (t *inflightTable) Remove(id uint64) {
	delete(t.byID, id)
}

// Has reports whether id is still in-flight.
func (t *inflightTable) Has(id uint64) bool {
	_, ok := t.byID[id]
	return ok
}

// Len reports how many tasks are currently in-flight.
func (t *inflightTable) Len() int {
	return len(t.byID)
}

// Front returns the earliest-inserted task still in the table, advancing
// past any ids already removed out of insertion order.
func (t *inflightTable) Front() (task.Task, bool) {
	for t.pos < len(t.order) {
		id := t.order[t.pos]
		if tk, ok := t.byID[id]; ok {
			return tk, true
		}
		t.pos++
	}
	return task.Task{}, false
}

// PopFront removes and returns the earliest-inserted surviving task.
func (t *inflightTable) PopFront() (task.Task, bool) {
	tk, ok := t.Front()
	if !ok {
		return task.Task{}, false
	}
	delete(t.byID, tk.ID)
	t.pos++
	return tk, true
}

// Ids returns a snapshot of every task id currently in-flight, in no
// particular order, for diagnostics.
func (t *inflightTable) Ids() []uint64 {
	ids := make([]uint64, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	return ids
}
