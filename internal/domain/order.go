package domain

// Side indicates whether an order buys or sells.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// TIF is an order's time-in-force. GTC orders rest on the book after
// matching; IOC orders cancel any unmatched remainder and never rest.
type TIF string

const (
	TIFGoodTillCancel    TIF = "GTC"
	TIFImmediateOrCancel TIF = "IOC"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusResting         OrderStatus = "resting"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Order is an accepted trading instruction. Partial fills reduce
// Remaining in place; EntryTime and EntrySeq never change, so an order
// keeps its queue position at its price level for its whole life.
type Order struct {
	OrderID   string      `json:"order_id"`
	Owner     string      `json:"owner"`
	Side      Side        `json:"side"`
	Price     int64       `json:"price"`
	Quantity  int64       `json:"quantity"`
	Remaining int64       `json:"remaining"`
	Filled    int64       `json:"filled"`
	TIF       TIF         `json:"tif"`
	Status    OrderStatus `json:"status"`
	EntryTime int64       `json:"entry_ts_ms"`
	EntrySeq  uint64      `json:"entry_seq"`
}

// Terminal reports whether the order can no longer trade or be canceled.
func (o *Order) Terminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected:
		return true
	}
	return false
}
