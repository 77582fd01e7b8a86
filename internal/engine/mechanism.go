package engine

import (
	"math/rand/v2"

	"github.com/proteus-sim/proteus/internal/domain"
)

// Mechanism is the interface trading mechanisms present to the run
// loop. CLOB is the only matching implementation in this core; batch
// auction and RFQ mechanisms plug in from outside.
type Mechanism interface {
	// Name identifies the mechanism in configuration and logs.
	Name() string
	// Submit processes one order intent delivered in clock order. ts and
	// seq are the intent event's timestamp and global sequence number.
	Submit(intent domain.OrderIntent, ts int64, seq uint64) (*SubmitResult, error)
	// Cancel removes a resting order by ID.
	Cancel(orderID string) (*domain.Order, error)
	// Book exposes the mechanism's resting state for inspection.
	Book() *Book
	// Uncross repairs a crossed book, returning the fills it took.
	Uncross(ts int64) []domain.Fill
}

// NewMechanism builds the mechanism named in scenario configuration.
func NewMechanism(name string, ids *domain.IDSource, tieBreak *rand.Rand) (Mechanism, error) {
	switch name {
	case "clob":
		return NewCLOB(ids, tieBreak), nil
	case "null":
		return NewNullMechanism(name), nil
	}
	return nil, domain.ErrUnknownMechanism
}

// NullMechanism accepts and ignores all intents; its book stays empty.
// It stands in for mechanisms whose internals live outside this core.
type NullMechanism struct {
	name string
	book *Book
}

// NewNullMechanism creates a no-op mechanism with the given name.
func NewNullMechanism(name string) *NullMechanism {
	return &NullMechanism{name: name, book: NewBook()}
}

func (m *NullMechanism) Name() string { return m.name }

func (m *NullMechanism) Submit(intent domain.OrderIntent, ts int64, seq uint64) (*SubmitResult, error) {
	return &SubmitResult{}, nil
}

func (m *NullMechanism) Cancel(orderID string) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (m *NullMechanism) Book() *Book { return m.book }

func (m *NullMechanism) Uncross(ts int64) []domain.Fill { return nil }
