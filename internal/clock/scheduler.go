// Package clock implements the discrete-event scheduler that imposes the
// simulation's single global order on all activity, and the in-memory
// event log used for reproducibility audits.
package clock

import (
	"container/heap"

	"github.com/proteus-sim/proteus/internal/domain"
)

// Scheduler holds pending events ordered by (timestamp, sequence) and
// advances simulated time as events are popped. Sequence numbers are
// assigned at schedule time, not at processing time, so equal-timestamp
// events always process in submission order.
type Scheduler struct {
	now     int64
	nextSeq uint64
	pending eventHeap
	ids     *domain.IDSource
}

// NewScheduler creates a scheduler starting at time zero.
func NewScheduler(ids *domain.IDSource) *Scheduler {
	return &Scheduler{ids: ids}
}

// Now returns the current simulated time in milliseconds.
func (s *Scheduler) Now() int64 {
	return s.now
}

// Pending returns the number of events waiting to be processed.
func (s *Scheduler) Pending() int {
	return s.pending.Len()
}

// Schedule inserts an event of the given kind at the given time,
// assigning its event ID and the next global sequence number. Scheduling
// before the current simulated time is rejected.
func (s *Scheduler) Schedule(kind domain.EventKind, payload any, at int64) (*domain.Event, error) {
	if at < s.now {
		return nil, domain.ErrScheduleInPast
	}
	s.nextSeq++
	ev := &domain.Event{
		ID:        s.ids.EventID(),
		Timestamp: at,
		Sequence:  s.nextSeq,
		Kind:      kind,
		Payload:   payload,
	}
	heap.Push(&s.pending, ev)
	return ev, nil
}

// Advance pops the next event in (timestamp, sequence) order and moves
// Now to its timestamp. It returns false when no events remain.
func (s *Scheduler) Advance() (*domain.Event, bool) {
	if s.pending.Len() == 0 {
		return nil, false
	}
	ev := heap.Pop(&s.pending).(*domain.Event)
	s.now = ev.Timestamp
	return ev, true
}

// eventHeap is a min-heap over (timestamp, sequence).
type eventHeap []*domain.Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Timestamp != h[j].Timestamp {
		return h[i].Timestamp < h[j].Timestamp
	}
	return h[i].Sequence < h[j].Sequence
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(*domain.Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return ev
}
