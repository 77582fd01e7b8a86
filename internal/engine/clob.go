package engine

import (
	"fmt"
	"math/rand/v2"

	"github.com/proteus-sim/proteus/internal/domain"
)

// BookDelta summarizes how one processed intent changed the book.
type BookDelta struct {
	RestedOrderID string   // non-empty when the remainder rested
	RemovedOrders []string // resting orders fully consumed or canceled
	BestBid       *int64   // nil when the side is empty
	BestAsk       *int64
}

// SubmitResult is the full outcome of one processed order intent: zero
// or more fills, the incoming order's final state, and the book delta.
type SubmitResult struct {
	Order *domain.Order
	Fills []domain.Fill
	Delta BookDelta
}

// CLOB is the continuous double-auction matching engine: price-time
// priority, partial fills, cancels, and crossed-book repair.
//
// tieBreak is the stream manager's "mechanism" stream, reserved for
// explicitly randomized tie-break policies. The default policy is fully
// deterministic and never draws from it.
type CLOB struct {
	book     *Book
	ids      *domain.IDSource
	orders   map[string]*domain.Order // all accepted orders, including terminal
	tieBreak *rand.Rand
}

// NewCLOB creates a matching engine minting IDs from ids. tieBreak may
// be nil.
func NewCLOB(ids *domain.IDSource, tieBreak *rand.Rand) *CLOB {
	return &CLOB{
		book:     NewBook(),
		ids:      ids,
		orders:   make(map[string]*domain.Order),
		tieBreak: tieBreak,
	}
}

// Name implements Mechanism.
func (c *CLOB) Name() string { return "clob" }

// Book exposes read-only book queries (best quotes, depth). The caller
// must not mutate it.
func (c *CLOB) Book() *Book { return c.book }

// Order returns an accepted order by ID, terminal or not.
func (c *CLOB) Order(orderID string) (*domain.Order, bool) {
	o, ok := c.orders[orderID]
	return o, ok
}

// ValidateIntent rejects malformed intents before any book interaction.
// The run loop also calls it at submission time so agents learn about
// rejection immediately.
func ValidateIntent(intent domain.OrderIntent) error {
	if !intent.Side.Valid() {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid side %q", intent.Side)}
	}
	if intent.Price <= 0 {
		return &domain.ValidationError{Message: fmt.Sprintf("price must be positive, got %d", intent.Price)}
	}
	if intent.Quantity <= 0 {
		return &domain.ValidationError{Message: fmt.Sprintf("quantity must be positive, got %d", intent.Quantity)}
	}
	switch intent.TIF {
	case domain.TIFGoodTillCancel, domain.TIFImmediateOrCancel:
	default:
		return &domain.ValidationError{Message: fmt.Sprintf("invalid tif %q", intent.TIF)}
	}
	if intent.Owner == "" {
		return &domain.ValidationError{Message: "owner must not be empty"}
	}
	return nil
}

// Submit processes one order intent through the matching engine.
//
// A buy is marketable while its price >= best ask; a sell while its
// price <= best bid. While marketable and quantity remains, it fills
// against the best opposite entry at the resting order's price, strict
// FIFO within a price level. A GTC remainder rests at its own price and
// entry priority; an IOC remainder is canceled and never rests.
func (c *CLOB) Submit(intent domain.OrderIntent, ts int64, seq uint64) (*SubmitResult, error) {
	if err := ValidateIntent(intent); err != nil {
		return nil, err
	}

	order := &domain.Order{
		OrderID:   c.ids.OrderID(),
		Owner:     intent.Owner,
		Side:      intent.Side,
		Price:     intent.Price,
		Quantity:  intent.Quantity,
		Remaining: intent.Quantity,
		TIF:       intent.TIF,
		Status:    domain.OrderStatusResting,
		EntryTime: ts,
		EntrySeq:  seq,
	}
	c.orders[order.OrderID] = order

	result := &SubmitResult{Order: order}

	for order.Remaining > 0 {
		best, found := c.book.BestOpposite(order.Side)
		if !found {
			break
		}
		if order.Side == domain.SideBuy {
			if order.Price < best.Price {
				break
			}
		} else {
			if order.Price > best.Price {
				break
			}
		}

		resting := best.Order
		fill := c.execute(resting, order, ts)
		result.Fills = append(result.Fills, fill)

		if resting.Remaining == 0 {
			resting.Status = domain.OrderStatusFilled
			c.book.Remove(resting.OrderID)
			result.Delta.RemovedOrders = append(result.Delta.RemovedOrders, resting.OrderID)
		}
	}

	switch {
	case order.Remaining == 0:
		order.Status = domain.OrderStatusFilled
	case order.TIF == domain.TIFImmediateOrCancel:
		// IOC: cancel the remainder, never rest.
		order.Status = domain.OrderStatusCanceled
	default:
		if order.Filled > 0 {
			order.Status = domain.OrderStatusPartiallyFilled
		}
		c.book.Insert(order)
		result.Delta.RestedOrderID = order.OrderID
	}

	c.fillQuotes(&result.Delta)
	return result, nil
}

// execute trades min(remaining) between a resting maker and an
// aggressing taker at the maker's price, reducing both in place. The
// maker keeps its original entry priority.
func (c *CLOB) execute(maker, taker *domain.Order, ts int64) domain.Fill {
	qty := taker.Remaining
	if maker.Remaining < qty {
		qty = maker.Remaining
	}

	maker.Remaining -= qty
	maker.Filled += qty
	taker.Remaining -= qty
	taker.Filled += qty
	if maker.Remaining > 0 {
		maker.Status = domain.OrderStatusPartiallyFilled
	}

	buyer, seller := maker.Owner, taker.Owner
	if taker.Side == domain.SideBuy {
		buyer, seller = taker.Owner, maker.Owner
	}

	return domain.Fill{
		FillID:       c.ids.FillID(),
		MakerOrderID: maker.OrderID,
		TakerOrderID: taker.OrderID,
		Buyer:        buyer,
		Seller:       seller,
		Price:        maker.Price,
		Quantity:     qty,
		Timestamp:    ts,
	}
}

// Cancel removes a resting order by ID. Fills already produced against
// the order are unaffected; the order only becomes unmatchable for
// future liquidity. Unknown IDs and terminal orders are rejected.
func (c *CLOB) Cancel(orderID string) (*domain.Order, error) {
	order, ok := c.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if order.Terminal() {
		return nil, domain.ErrOrderNotCancelable
	}
	c.book.Remove(orderID)
	order.Status = domain.OrderStatusCanceled
	return order, nil
}

// Uncross resolves an externally injected crossed book: while best bid
// >= best ask, the earliest-entered resting order across both sides acts
// as the maker and trades at its own price. Validated intents never
// leave the book crossed, so this only fires after external mutation.
func (c *CLOB) Uncross(ts int64) []domain.Fill {
	var fills []domain.Fill
	for {
		bid, okBid := c.book.BestBid()
		ask, okAsk := c.book.BestAsk()
		if !okBid || !okAsk || bid.Price < ask.Price {
			break
		}

		maker, taker := bid.Order, ask.Order
		if entryBefore(ask, bid) {
			maker, taker = ask.Order, bid.Order
		}

		fills = append(fills, c.execute(maker, taker, ts))
		for _, o := range []*domain.Order{maker, taker} {
			if o.Remaining == 0 {
				o.Status = domain.OrderStatusFilled
				c.book.Remove(o.OrderID)
			} else {
				o.Status = domain.OrderStatusPartiallyFilled
			}
		}
	}
	return fills
}

// entryBefore reports whether a entered the book before b.
func entryBefore(a, b BookEntry) bool {
	if a.EntryTime != b.EntryTime {
		return a.EntryTime < b.EntryTime
	}
	return a.EntrySeq < b.EntrySeq
}

func (c *CLOB) fillQuotes(delta *BookDelta) {
	if bid, ok := c.book.BestBid(); ok {
		p := bid.Price
		delta.BestBid = &p
	}
	if ask, ok := c.book.BestAsk(); ok {
		p := ask.Price
		delta.BestAsk = &p
	}
}
