package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// IDSource mints order, fill, and event IDs as SHA-1 name-based UUIDs in
// a namespace derived from the run's root seed. Identical seeds produce
// identical ID sequences, which byte-identical replay depends on; random
// V4 UUIDs would break it.
//
// Each kind has its own counter, so the IDs consumed by one producer are
// unaffected by how many IDs another producer has drawn.
type IDSource struct {
	ns       uuid.UUID
	counters map[string]uint64
}

// NewIDSource creates an ID source for the given root seed.
func NewIDSource(rootSeed uint64) *IDSource {
	ns := uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "proteus:%d", rootSeed))
	return &IDSource{
		ns:       ns,
		counters: make(map[string]uint64),
	}
}

func (s *IDSource) next(kind string) string {
	s.counters[kind]++
	return uuid.NewSHA1(s.ns, fmt.Appendf(nil, "%s:%d", kind, s.counters[kind])).String()
}

// OrderID returns the next deterministic order ID.
func (s *IDSource) OrderID() string { return s.next("order") }

// FillID returns the next deterministic fill ID.
func (s *IDSource) FillID() string { return s.next("fill") }

// EventID returns the next deterministic event ID.
func (s *IDSource) EventID() string { return s.next("event") }

// IntentID returns the next deterministic intent ID.
func (s *IDSource) IntentID() string { return s.next("intent") }
