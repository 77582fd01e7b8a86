package engine

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/proteus-sim/proteus/internal/domain"
)

func randomIntent(t *rapid.T, label string) domain.OrderIntent {
	side := domain.SideBuy
	if rapid.Bool().Draw(t, label+"Sell") {
		side = domain.SideSell
	}
	return domain.OrderIntent{
		Owner:    rapid.SampledFrom([]string{"a", "b", "c", "d"}).Draw(t, label+"Owner"),
		Side:     side,
		Price:    rapid.Int64Range(90, 110).Draw(t, label+"Price"),
		Quantity: rapid.Int64Range(1, 20).Draw(t, label+"Qty"),
		TIF:      domain.TIFGoodTillCancel,
	}
}

// After any sequence of validated intents the book is never crossed.
func TestProperty_BookNeverCrossed(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := newTestCLOB()
		n := rapid.IntRange(1, 60).Draw(t, "n")
		for i := 0; i < n; i++ {
			if _, err := c.Submit(randomIntent(t, "intent"), int64(i), uint64(i+1)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Book().Crossed() {
				t.Fatal("book crossed after processing an intent")
			}
		}
	})
}

// The sum of quantities filled against any order never exceeds its
// original quantity, and remaining = original - filled at all times.
func TestProperty_FillConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := newTestCLOB()
		filledBy := make(map[string]int64)
		n := rapid.IntRange(1, 60).Draw(t, "n")
		for i := 0; i < n; i++ {
			res, err := c.Submit(randomIntent(t, "intent"), int64(i), uint64(i+1))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, fill := range res.Fills {
				filledBy[fill.MakerOrderID] += fill.Quantity
				filledBy[fill.TakerOrderID] += fill.Quantity
			}
		}
		for id, filled := range filledBy {
			order, ok := c.Order(id)
			if !ok {
				t.Fatalf("fill references unknown order %s", id)
			}
			if filled != order.Filled {
				t.Fatalf("order %s: fills sum to %d but order records %d", id, filled, order.Filled)
			}
			if filled > order.Quantity {
				t.Fatalf("order %s overfilled: %d > %d", id, filled, order.Quantity)
			}
			if order.Remaining != order.Quantity-order.Filled {
				t.Fatalf("order %s: remaining %d != original %d - filled %d",
					id, order.Remaining, order.Quantity, order.Filled)
			}
		}
	})
}

// Every fill executes at the maker's price, and that price is always
// at least as good for the taker as its own limit.
func TestProperty_FillPriceIsMakerPrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := newTestCLOB()
		n := rapid.IntRange(1, 60).Draw(t, "n")
		for i := 0; i < n; i++ {
			in := randomIntent(t, "intent")
			res, err := c.Submit(in, int64(i), uint64(i+1))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, fill := range res.Fills {
				maker, ok := c.Order(fill.MakerOrderID)
				if !ok {
					t.Fatalf("unknown maker %s", fill.MakerOrderID)
				}
				if fill.Price != maker.Price {
					t.Fatalf("fill price %d != maker price %d", fill.Price, maker.Price)
				}
				if in.Side == domain.SideBuy && fill.Price > in.Price {
					t.Fatalf("buyer paid %d above its limit %d", fill.Price, in.Price)
				}
				if in.Side == domain.SideSell && fill.Price < in.Price {
					t.Fatalf("seller received %d below its limit %d", fill.Price, in.Price)
				}
			}
		}
	})
}

// Within one price level, liquidity always goes to the earliest entry
// first: an order never fills while an earlier same-price order on the
// same side still has remaining quantity resting.
func TestProperty_FIFOByEntrySequence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := newTestCLOB()
		n := rapid.IntRange(1, 60).Draw(t, "n")
		for i := 0; i < n; i++ {
			res, err := c.Submit(randomIntent(t, "intent"), int64(i), uint64(i+1))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for j := 1; j < len(res.Fills); j++ {
				prev, _ := c.Order(res.Fills[j-1].MakerOrderID)
				cur, _ := c.Order(res.Fills[j].MakerOrderID)
				if prev.Price == cur.Price && prev.EntrySeq > cur.EntrySeq {
					t.Fatalf("later entry %d filled before earlier entry %d at price %d",
						prev.EntrySeq, cur.EntrySeq, prev.Price)
				}
				if prev.Price == cur.Price && prev.Remaining > 0 {
					t.Fatalf("order %s filled while earlier order %s still had %d resting",
						cur.OrderID, prev.OrderID, prev.Remaining)
				}
			}
		}
	})
}
