// Package sim wires the stream manager, clock, matching engine, and
// ledger into a single reproducible simulation run, and verifies the
// replay contract that reproducibility audits depend on.
package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/proteus-sim/proteus/internal/clock"
	"github.com/proteus-sim/proteus/internal/domain"
	"github.com/proteus-sim/proteus/internal/engine"
	"github.com/proteus-sim/proteus/internal/ledger"
	"github.com/proteus-sim/proteus/internal/rng"
)

// Params configures one simulation run. Convention and Latency are
// fixed for the run's lifetime.
type Params struct {
	Seed       uint64
	Mechanism  string // "clob" when empty
	Convention ledger.Convention
	Latency    LatencyModel
	Accounts   []ledger.AccountSpec
}

// Run owns one complete simulation: its stream manager, scheduler,
// matching engine, ledger, and event log. Execution is strictly
// single-threaded; independent runs share no mutable state and may
// execute concurrently.
type Run struct {
	params Params
	rng    *rng.Manager
	ids    *domain.IDSource
	sched  *clock.Scheduler
	log    *clock.Log
	mech   engine.Mechanism
	ledger *ledger.Ledger
	logger *slog.Logger
}

// NewRun initializes a run from params. The matching engine receives
// the manager's "mechanism" stream for randomized tie-break policies;
// the default policy never draws from it.
func NewRun(params Params, logger *slog.Logger) (*Run, error) {
	if params.Latency == nil {
		params.Latency = ConstantLatency{}
	}
	if params.Mechanism == "" {
		params.Mechanism = "clob"
	}
	if logger == nil {
		logger = slog.Default()
	}

	manager := rng.New(params.Seed)
	mechanismStream, err := manager.Stream("mechanism")
	if err != nil {
		return nil, fmt.Errorf("initializing mechanism stream: %w", err)
	}

	led, err := ledger.New(params.Convention, params.Accounts)
	if err != nil {
		return nil, fmt.Errorf("initializing ledger: %w", err)
	}

	mech, err := engine.NewMechanism(params.Mechanism, domain.NewIDSource(params.Seed), mechanismStream)
	if err != nil {
		return nil, fmt.Errorf("initializing mechanism %q: %w", params.Mechanism, err)
	}

	ids := domain.NewIDSource(params.Seed)
	return &Run{
		params: params,
		rng:    manager,
		ids:    ids,
		sched:  clock.NewScheduler(ids),
		log:    clock.NewLog(),
		mech:   mech,
		ledger: led,
		logger: logger,
	}, nil
}

// Streams exposes the run's stream manager to agent collaborators.
func (r *Run) Streams() *rng.Manager { return r.rng }

// Now returns the current simulated time.
func (r *Run) Now() int64 { return r.sched.Now() }

// Book exposes read-only book queries.
func (r *Run) Book() *engine.Book { return r.mech.Book() }

// Ledger exposes read-only account snapshots.
func (r *Run) Ledger() *ledger.Ledger { return r.ledger }

// Log returns the run's event log.
func (r *Run) Log() *clock.Log { return r.log }

// Submit validates an order intent and schedules it for delivery after
// the submission latency. On acceptance it returns the order event's
// ID for tracking.
func (r *Run) Submit(intent domain.OrderIntent) (string, error) {
	if err := engine.ValidateIntent(intent); err != nil {
		return "", err
	}
	if intent.IntentID == "" {
		intent.IntentID = r.ids.IntentID()
	}
	ev, err := r.sched.Schedule(domain.EventOrder, intent, r.sched.Now()+r.params.Latency.SubmissionDelay())
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

// Cancel schedules a cancel intent. Cancellation is an ordinary event:
// its effect is entirely determined by its position in the global
// order, never retroactive.
func (r *Run) Cancel(intent domain.CancelIntent) (string, error) {
	if intent.IntentID == "" {
		intent.IntentID = r.ids.IntentID()
	}
	ev, err := r.sched.Schedule(domain.EventCancel, intent, r.sched.Now()+r.params.Latency.SubmissionDelay())
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

// ScheduleNews schedules an information event at the given time. The
// core only orders and logs it; agent collaborators consume it.
func (r *Run) ScheduleNews(news domain.News, at int64) (string, error) {
	ev, err := r.sched.Schedule(domain.EventNews, news, at)
	if err != nil {
		return "", err
	}
	return ev.ID, nil
}

// Drive processes pending events to completion, one at a time, in
// strict (timestamp, sequence) order. Validation failures reject the
// intent and continue; accounting invariant violations abort the run.
func (r *Run) Drive() error {
	for {
		ev, ok := r.sched.Advance()
		if !ok {
			break
		}
		if err := r.process(ev); err != nil {
			return err
		}
	}
	if err := r.ledger.Reconcile(); err != nil {
		return err
	}
	return nil
}

func (r *Run) process(ev *domain.Event) error {
	r.log.Append(ev)

	switch ev.Kind {
	case domain.EventOrder:
		intent := ev.Payload.(domain.OrderIntent)
		result, err := r.mech.Submit(intent, ev.Timestamp, ev.Sequence)
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			r.logger.Debug("intent rejected",
				slog.String("intent_id", intent.IntentID),
				slog.String("reason", verr.Message))
			return nil
		}
		if err != nil {
			return fmt.Errorf("processing order event %s: %w", ev.ID, err)
		}
		for _, fill := range result.Fills {
			at := ev.Timestamp + r.params.Latency.FillDelay()
			if _, err := r.sched.Schedule(domain.EventFill, fill, at); err != nil {
				return fmt.Errorf("scheduling fill %s: %w", fill.FillID, err)
			}
		}

	case domain.EventCancel:
		intent := ev.Payload.(domain.CancelIntent)
		if _, err := r.mech.Cancel(intent.OrderID); err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrOrderNotCancelable) {
				r.logger.Debug("cancel rejected",
					slog.String("intent_id", intent.IntentID),
					slog.String("order_id", intent.OrderID),
					slog.String("reason", err.Error()))
				return nil
			}
			return fmt.Errorf("processing cancel event %s: %w", ev.ID, err)
		}

	case domain.EventFill:
		fill := ev.Payload.(domain.Fill)
		if err := r.ledger.Apply(fill); err != nil {
			return fmt.Errorf("applying fill event %s: %w", ev.ID, err)
		}

	default:
		// News, batch clears, and RFQ traffic belong to external
		// collaborators; the core only imposes order and logs them.
	}

	// A crossed book here means an intent bypassed matching. Repair it
	// deterministically and record the occurrence.
	if r.mech.Book().Crossed() {
		fills := r.mech.Uncross(ev.Timestamp)
		r.logger.Error("crossed book repaired",
			slog.String("event_id", ev.ID),
			slog.Int("fills", len(fills)))
		for _, fill := range fills {
			at := ev.Timestamp + r.params.Latency.FillDelay()
			if _, err := r.sched.Schedule(domain.EventFill, fill, at); err != nil {
				return fmt.Errorf("scheduling uncross fill %s: %w", fill.FillID, err)
			}
		}
	}
	return nil
}

// LogDigest returns the SHA-256 digest of the run's event log.
func (r *Run) LogDigest() (string, error) {
	return r.log.Digest()
}
