package sim

import (
	"errors"
	"fmt"

	"github.com/proteus-sim/proteus/internal/domain"
	"github.com/proteus-sim/proteus/internal/engine"
	"github.com/proteus-sim/proteus/internal/ledger"
)

// ReplayDivergenceError is fatal: re-processing a logged sequence
// produced different derived state than the live run, which signals a
// hidden non-determinism bug somewhere in the core. It is never
// tolerated or retried.
type ReplayDivergenceError struct {
	Field  string // "fills", "accounts", or "book"
	Index  int
	Detail string
}

func (e *ReplayDivergenceError) Error() string {
	return fmt.Sprintf("replay divergence in %s at index %d: %s", e.Field, e.Index, e.Detail)
}

// VerifyReplay re-processes the run's event log against a freshly
// initialized core and checks that it reproduces identical fills,
// account states, and book contents. It must be called after Drive.
func (r *Run) VerifyReplay() error {
	replayed, err := replayCore(r.params, r.log.Events())
	if err != nil {
		return err
	}

	var expected []domain.Fill
	for _, ev := range r.log.Events() {
		if ev.Kind == domain.EventFill {
			expected = append(expected, ev.Payload.(domain.Fill))
		}
	}
	if err := compareFills(expected, replayed.fills); err != nil {
		return err
	}
	if err := compareAccounts(r.ledger.SnapshotAll(), replayed.ledger.SnapshotAll()); err != nil {
		return err
	}
	return compareBooks(r.mech.Book().Orders(), replayed.mech.Book().Orders())
}

type replayState struct {
	mech   engine.Mechanism
	ledger *ledger.Ledger
	fills  []domain.Fill
}

// replayCore feeds the logged events, in log order, through a fresh
// mechanism and ledger. Order and cancel events regenerate fills;
// fill events replay into the ledger exactly as the live run applied
// them. No inputs besides the log are consulted.
func replayCore(params Params, events []*domain.Event) (*replayState, error) {
	led, err := ledger.New(params.Convention, params.Accounts)
	if err != nil {
		return nil, fmt.Errorf("initializing replay ledger: %w", err)
	}
	mech, err := engine.NewMechanism(params.Mechanism, domain.NewIDSource(params.Seed), nil)
	if err != nil {
		return nil, fmt.Errorf("initializing replay mechanism: %w", err)
	}
	state := &replayState{
		mech:   mech,
		ledger: led,
	}

	for _, ev := range events {
		switch ev.Kind {
		case domain.EventOrder:
			result, err := state.mech.Submit(ev.Payload.(domain.OrderIntent), ev.Timestamp, ev.Sequence)
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				continue // rejected live, rejected on replay
			}
			if err != nil {
				return nil, fmt.Errorf("replaying order event %s: %w", ev.ID, err)
			}
			state.fills = append(state.fills, result.Fills...)
		case domain.EventCancel:
			intent := ev.Payload.(domain.CancelIntent)
			if _, err := state.mech.Cancel(intent.OrderID); err != nil &&
				!errors.Is(err, domain.ErrOrderNotFound) && !errors.Is(err, domain.ErrOrderNotCancelable) {
				return nil, fmt.Errorf("replaying cancel event %s: %w", ev.ID, err)
			}
		case domain.EventFill:
			if err := state.ledger.Apply(ev.Payload.(domain.Fill)); err != nil {
				return nil, fmt.Errorf("replaying fill event %s: %w", ev.ID, err)
			}
		}
		if state.mech.Book().Crossed() {
			state.fills = append(state.fills, state.mech.Uncross(ev.Timestamp)...)
		}
	}
	return state, nil
}

func compareFills(expected, got []domain.Fill) error {
	if len(expected) != len(got) {
		return &ReplayDivergenceError{
			Field:  "fills",
			Index:  min(len(expected), len(got)),
			Detail: fmt.Sprintf("live run produced %d fills, replay produced %d", len(expected), len(got)),
		}
	}
	for i := range expected {
		if expected[i] != got[i] {
			return &ReplayDivergenceError{
				Field:  "fills",
				Index:  i,
				Detail: fmt.Sprintf("live %+v, replay %+v", expected[i], got[i]),
			}
		}
	}
	return nil
}

func compareAccounts(expected, got []ledger.Account) error {
	if len(expected) != len(got) {
		return &ReplayDivergenceError{
			Field:  "accounts",
			Index:  min(len(expected), len(got)),
			Detail: fmt.Sprintf("live run has %d accounts, replay has %d", len(expected), len(got)),
		}
	}
	for i := range expected {
		if expected[i] != got[i] {
			return &ReplayDivergenceError{
				Field:  "accounts",
				Index:  i,
				Detail: fmt.Sprintf("live %+v, replay %+v", expected[i], got[i]),
			}
		}
	}
	return nil
}

func compareBooks(expected, got []*domain.Order) error {
	if len(expected) != len(got) {
		return &ReplayDivergenceError{
			Field:  "book",
			Index:  min(len(expected), len(got)),
			Detail: fmt.Sprintf("live book holds %d orders, replay holds %d", len(expected), len(got)),
		}
	}
	for i := range expected {
		if *expected[i] != *got[i] {
			return &ReplayDivergenceError{
				Field:  "book",
				Index:  i,
				Detail: fmt.Sprintf("live %+v, replay %+v", *expected[i], *got[i]),
			}
		}
	}
	return nil
}
