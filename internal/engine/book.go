package engine

import (
	"github.com/google/btree"

	"github.com/proteus-sim/proteus/internal/domain"
)

// BookEntry represents a single order resting on the book. The key
// fields (Price, EntryTime, EntrySeq) never change after insertion, so
// partial fills mutate the Order in place without disturbing the tree.
type BookEntry struct {
	Price     int64
	EntryTime int64
	EntrySeq  uint64
	Order     *domain.Order
}

// PriceLevel is an aggregated view of one price on one side.
type PriceLevel struct {
	Price      int64 `json:"price"`
	Quantity   int64 `json:"quantity"`
	OrderCount int   `json:"order_count"`
}

// bidLess orders the bid side: price descending, then entry time
// ascending, then entry sequence ascending. Min() is the best bid.
func bidLess(a, b BookEntry) bool {
	if a.Price != b.Price {
		return a.Price > b.Price
	}
	if a.EntryTime != b.EntryTime {
		return a.EntryTime < b.EntryTime
	}
	return a.EntrySeq < b.EntrySeq
}

// askLess orders the ask side: price ascending, then entry time
// ascending, then entry sequence ascending. Min() is the best ask.
func askLess(a, b BookEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	if a.EntryTime != b.EntryTime {
		return a.EntryTime < b.EntryTime
	}
	return a.EntrySeq < b.EntrySeq
}

// Book maintains the bid and ask sides of a single-asset limit order
// book using B-trees, with a secondary index for removal by order ID.
// The comparators express price-time priority directly: in-order
// iteration of either side visits orders in match priority.
//
// Book is not safe for concurrent use. Within a run all access is
// strictly sequential, and independent runs never share a book.
type Book struct {
	bids  *btree.BTreeG[BookEntry]
	asks  *btree.BTreeG[BookEntry]
	index map[string]BookEntry // order_id → entry
}

// NewBook creates an empty order book.
func NewBook() *Book {
	const degree = 32
	return &Book{
		bids:  btree.NewG[BookEntry](degree, bidLess),
		asks:  btree.NewG[BookEntry](degree, askLess),
		index: make(map[string]BookEntry),
	}
}

// Insert rests an order on its side of the book.
func (b *Book) Insert(order *domain.Order) {
	entry := BookEntry{
		Price:     order.Price,
		EntryTime: order.EntryTime,
		EntrySeq:  order.EntrySeq,
		Order:     order,
	}
	if order.Side == domain.SideBuy {
		b.bids.ReplaceOrInsert(entry)
	} else {
		b.asks.ReplaceOrInsert(entry)
	}
	b.index[order.OrderID] = entry
}

// Remove deletes an order from the book by ID. It reports whether the
// order was resting.
func (b *Book) Remove(orderID string) bool {
	entry, ok := b.index[orderID]
	if !ok {
		return false
	}
	delete(b.index, orderID)
	if entry.Order.Side == domain.SideBuy {
		b.bids.Delete(entry)
	} else {
		b.asks.Delete(entry)
	}
	return true
}

// Contains reports whether the order is currently resting.
func (b *Book) Contains(orderID string) bool {
	_, ok := b.index[orderID]
	return ok
}

// BestBid returns the highest-priority bid (highest price, earliest entry).
func (b *Book) BestBid() (BookEntry, bool) {
	return b.bids.Min()
}

// BestAsk returns the highest-priority ask (lowest price, earliest entry).
func (b *Book) BestAsk() (BookEntry, bool) {
	return b.asks.Min()
}

// BestOpposite returns the entry an incoming order on side would match
// against first.
func (b *Book) BestOpposite(side domain.Side) (BookEntry, bool) {
	if side == domain.SideBuy {
		return b.BestAsk()
	}
	return b.BestBid()
}

// Crossed reports whether best bid >= best ask. Outside of a single
// intent being processed this must never be true.
func (b *Book) Crossed() bool {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	return okBid && okAsk && bid.Price >= ask.Price
}

// DepthAt returns the total resting quantity on the given side at
// exactly the given price.
func (b *Book) DepthAt(side domain.Side, price int64) int64 {
	var depth int64
	walk := b.bids.Ascend
	if side == domain.SideSell {
		walk = b.asks.Ascend
	}
	walk(func(entry BookEntry) bool {
		if entry.Price == price {
			depth += entry.Order.Remaining
		}
		// Both comparators group equal prices contiguously, so stop
		// once a level past the target price appears.
		if side == domain.SideBuy {
			return entry.Price >= price
		}
		return entry.Price <= price
	})
	return depth
}

// TopBids returns up to n aggregated price levels from the bid side,
// ordered by price descending.
func (b *Book) TopBids(n int) []PriceLevel {
	return topLevels(b.bids, n)
}

// TopAsks returns up to n aggregated price levels from the ask side,
// ordered by price ascending.
func (b *Book) TopAsks(n int) []PriceLevel {
	return topLevels(b.asks, n)
}

// topLevels iterates a side in order and aggregates entries into at
// most n price levels.
func topLevels(tree *btree.BTreeG[BookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry BookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price == entry.Price {
			levels[len(levels)-1].Quantity += entry.Order.Remaining
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:      entry.Price,
			Quantity:   entry.Order.Remaining,
			OrderCount: 1,
		})
		return true
	})
	return levels
}

// BidCount returns the number of individual resting bids.
func (b *Book) BidCount() int {
	return b.bids.Len()
}

// AskCount returns the number of individual resting asks.
func (b *Book) AskCount() int {
	return b.asks.Len()
}

// Orders returns all resting orders in a deterministic order: bids in
// priority order, then asks in priority order. Used by replay audits to
// compare final book contents.
func (b *Book) Orders() []*domain.Order {
	orders := make([]*domain.Order, 0, b.bids.Len()+b.asks.Len())
	b.bids.Ascend(func(entry BookEntry) bool {
		orders = append(orders, entry.Order)
		return true
	})
	b.asks.Ascend(func(entry BookEntry) bool {
		orders = append(orders, entry.Order)
		return true
	})
	return orders
}
