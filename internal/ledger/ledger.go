// Package ledger converts fills into per-participant cash and inventory
// state and enforces the zero-sum and reconciliation invariants the
// research output depends on.
package ledger

import (
	"fmt"
	"sort"

	"github.com/proteus-sim/proteus/internal/domain"
)

// Convention selects how realized P&L is computed. It is fixed for the
// lifetime of a run.
type Convention string

const (
	AverageCost Convention = "average_cost"
	FIFOLot     Convention = "fifo_lot"
)

// Valid reports whether the convention is a known value.
func (c Convention) Valid() bool {
	return c == AverageCost || c == FIFOLot
}

// AccountSpec seeds one account at run start.
type AccountSpec struct {
	Owner     string
	Cash      int64
	Inventory int64
}

// Account is the read-only snapshot view of one participant's state.
type Account struct {
	Owner       string  `json:"owner"`
	Cash        int64   `json:"cash"`
	Inventory   int64   `json:"inventory"`
	RealizedPnL float64 `json:"realized_pnl"`
}

// InvariantError is a fatal accounting-invariant violation. It always
// carries the offending fill ID and is never retried or suppressed:
// silent continuation would invalidate every downstream conclusion.
type InvariantError struct {
	FillID  string
	Code    string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("accounting invariant %s violated by fill %s: %s", e.Code, e.FillID, e.Message)
}

// lot is one open FIFO position lot. Positive quantity is long,
// negative is short; a lot queue never mixes signs.
type lot struct {
	quantity int64
	price    int64
}

type account struct {
	owner       string
	cash        int64
	inventory   int64
	realizedPnL float64

	// average_cost state
	avgCost  float64
	position int64
	// fifo_lot state
	lots []lot
}

// Ledger applies fills to accounts and checks invariants. Accounts not
// seeded at construction are created on first touch with zero balances.
type Ledger struct {
	convention Convention
	accounts   map[string]*account

	initialCash      int64
	initialInventory int64
	processedFills   int
	lastFillID       string
}

// New creates a ledger with the given P&L convention and initial
// accounts.
func New(convention Convention, initial []AccountSpec) (*Ledger, error) {
	if !convention.Valid() {
		return nil, fmt.Errorf("unknown pnl convention %q", convention)
	}
	l := &Ledger{
		convention: convention,
		accounts:   make(map[string]*account),
	}
	for _, spec := range initial {
		l.accounts[spec.Owner] = &account{
			owner:     spec.Owner,
			cash:      spec.Cash,
			inventory: spec.Inventory,
		}
		l.initialCash += spec.Cash
		l.initialInventory += spec.Inventory
	}
	return l, nil
}

func (l *Ledger) account(owner string) *account {
	a, ok := l.accounts[owner]
	if !ok {
		a = &account{owner: owner}
		l.accounts[owner] = a
	}
	return a
}

// Apply updates both counterparties for one fill: buyer cash decreases
// by price×quantity and seller cash increases by the same amount; buyer
// inventory increases by quantity and seller inventory decreases by the
// same amount. Realized P&L is recomputed per the run's convention.
//
// A zero-sum or conservation violation returns a fatal *InvariantError.
func (l *Ledger) Apply(fill domain.Fill) error {
	l.lastFillID = fill.FillID
	if fill.Quantity <= 0 {
		return &InvariantError{
			FillID:  fill.FillID,
			Code:    "invalid_fill_quantity",
			Message: fmt.Sprintf("fill quantity must be > 0, got %d", fill.Quantity),
		}
	}
	if fill.Price <= 0 {
		return &InvariantError{
			FillID:  fill.FillID,
			Code:    "invalid_fill_price",
			Message: fmt.Sprintf("fill price must be > 0, got %d", fill.Price),
		}
	}
	buyer := l.account(fill.Buyer)
	seller := l.account(fill.Seller)

	priorCash := l.totalCash()
	priorInventory := l.totalInventory()

	notional := fill.Price * fill.Quantity
	buyerCashDelta := -notional
	sellerCashDelta := notional
	buyerInventoryDelta := fill.Quantity
	sellerInventoryDelta := -fill.Quantity

	buyer.cash += buyerCashDelta
	seller.cash += sellerCashDelta
	buyer.inventory += buyerInventoryDelta
	seller.inventory += sellerInventoryDelta
	l.applyPnL(buyer, fill.Quantity, fill.Price)
	l.applyPnL(seller, -fill.Quantity, fill.Price)
	l.processedFills++

	if drift := buyerCashDelta + sellerCashDelta; drift != 0 {
		return &InvariantError{
			FillID:  fill.FillID,
			Code:    "cash_transfer_not_zero_sum",
			Message: fmt.Sprintf("cash transfer drifted by %d", drift),
		}
	}
	if drift := buyerInventoryDelta + sellerInventoryDelta; drift != 0 {
		return &InvariantError{
			FillID:  fill.FillID,
			Code:    "inventory_transfer_not_zero_sum",
			Message: fmt.Sprintf("inventory transfer drifted by %d", drift),
		}
	}
	if drift := l.totalCash() - priorCash; drift != 0 {
		return &InvariantError{
			FillID:  fill.FillID,
			Code:    "cash_conservation_violation",
			Message: fmt.Sprintf("total cash drifted by %d", drift),
		}
	}
	if drift := l.totalInventory() - priorInventory; drift != 0 {
		return &InvariantError{
			FillID:  fill.FillID,
			Code:    "inventory_conservation_violation",
			Message: fmt.Sprintf("total inventory drifted by %d", drift),
		}
	}
	return nil
}

// applyPnL updates one account's realized P&L for a signed position
// delta (positive buys, negative sells) at the given price.
func (l *Ledger) applyPnL(a *account, delta int64, price int64) {
	if l.convention == FIFOLot {
		applyFIFO(a, delta, price)
		return
	}
	applyAverageCost(a, delta, price)
}

// applyAverageCost keeps a volume-weighted average entry cost for the
// open position. Closing quantity realizes (price - avgCost) per unit
// for longs and the negation for shorts; a flip opens the new position
// at the fill price.
func applyAverageCost(a *account, delta int64, price int64) {
	switch {
	case a.position == 0 || sameSign(a.position, delta):
		total := abs(a.position) + abs(delta)
		a.avgCost = (a.avgCost*float64(abs(a.position)) + float64(price)*float64(abs(delta))) / float64(total)
	default:
		closing := min64(abs(delta), abs(a.position))
		perUnit := float64(price) - a.avgCost
		if a.position < 0 {
			perUnit = -perUnit
		}
		a.realizedPnL += perUnit * float64(closing)
		if abs(delta) > abs(a.position) {
			// Flip: the remainder opens a fresh position at the fill price.
			a.avgCost = float64(price)
		}
	}
	a.position += delta
}

// applyFIFO consumes open lots front-first when the delta opposes the
// position; unmatched remainder opens a new lot at the fill price.
func applyFIFO(a *account, delta int64, price int64) {
	remaining := delta
	for remaining != 0 && len(a.lots) > 0 && !sameSign(a.lots[0].quantity, remaining) {
		front := &a.lots[0]
		closing := min64(abs(remaining), abs(front.quantity))
		perUnit := float64(price - front.price)
		if front.quantity < 0 {
			perUnit = -perUnit
		}
		a.realizedPnL += perUnit * float64(closing)

		if front.quantity > 0 {
			front.quantity -= closing
			remaining += closing
		} else {
			front.quantity += closing
			remaining -= closing
		}
		if front.quantity == 0 {
			a.lots = a.lots[1:]
		}
	}
	if remaining != 0 {
		a.lots = append(a.lots, lot{quantity: remaining, price: price})
	}
}

// Reconcile asserts that aggregate cash and inventory deltas across the
// run sum to zero. A violation is fatal and carries the last processed
// fill ID for triage.
func (l *Ledger) Reconcile() error {
	if drift := l.totalCash() - l.initialCash; drift != 0 {
		return &InvariantError{
			FillID:  l.lastFillID,
			Code:    "cash_reconciliation_failed",
			Message: fmt.Sprintf("aggregate cash delta is %d, want 0", drift),
		}
	}
	if drift := l.totalInventory() - l.initialInventory; drift != 0 {
		return &InvariantError{
			FillID:  l.lastFillID,
			Code:    "inventory_reconciliation_failed",
			Message: fmt.Sprintf("aggregate inventory delta is %d, want 0", drift),
		}
	}
	return nil
}

// Snapshot returns a read-only view of one account.
func (l *Ledger) Snapshot(owner string) (Account, error) {
	a, ok := l.accounts[owner]
	if !ok {
		return Account{}, domain.ErrOwnerNotFound
	}
	return Account{
		Owner:       a.owner,
		Cash:        a.cash,
		Inventory:   a.inventory,
		RealizedPnL: a.realizedPnL,
	}, nil
}

// SnapshotAll returns read-only views of every account, sorted by owner
// for deterministic iteration.
func (l *Ledger) SnapshotAll() []Account {
	out := make([]Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, Account{
			Owner:       a.owner,
			Cash:        a.cash,
			Inventory:   a.inventory,
			RealizedPnL: a.realizedPnL,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// MarkToMarket returns each account's equity (cash + inventory×mark) at
// the given mark price.
func (l *Ledger) MarkToMarket(markPrice int64) map[string]int64 {
	out := make(map[string]int64, len(l.accounts))
	for owner, a := range l.accounts {
		out[owner] = a.cash + a.inventory*markPrice
	}
	return out
}

// ProcessedFills returns the number of fills applied so far.
func (l *Ledger) ProcessedFills() int {
	return l.processedFills
}

func (l *Ledger) totalCash() int64 {
	var total int64
	for _, a := range l.accounts {
		total += a.cash
	}
	return total
}

func (l *Ledger) totalInventory() int64 {
	var total int64
	for _, a := range l.accounts {
		total += a.inventory
	}
	return total
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
