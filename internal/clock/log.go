package clock

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/proteus-sim/proteus/internal/domain"
)

// Log is the append-only record of processed events, in processing
// order. It is the run's canonical replayable artifact: feeding it back
// through a fresh core must reproduce identical derived state.
type Log struct {
	events []*domain.Event
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{}
}

// Append records one processed event.
func (l *Log) Append(ev *domain.Event) {
	l.events = append(l.events, ev)
}

// Events returns the logged events in processing order. The returned
// slice must not be mutated.
func (l *Log) Events() []*domain.Event {
	return l.events
}

// Len returns the number of logged events.
func (l *Log) Len() int {
	return len(l.events)
}

// Digest returns a hex SHA-256 over the canonical JSON encoding of the
// log. Two runs are byte-identical iff their digests match.
func (l *Log) Digest() (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for i, ev := range l.events {
		if err := enc.Encode(ev); err != nil {
			return "", fmt.Errorf("encoding event %d (%s): %w", i, ev.ID, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
