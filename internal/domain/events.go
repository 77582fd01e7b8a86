package domain

// EventKind identifies the payload shape of an Event.
type EventKind string

const (
	EventNews       EventKind = "news"
	EventOrder      EventKind = "order"
	EventCancel     EventKind = "cancel"
	EventFill       EventKind = "fill"
	EventBatchClear EventKind = "batch_clear"
	EventRFQRequest EventKind = "rfq_request"
	EventRFQQuote   EventKind = "rfq_quote"
	EventRFQAccept  EventKind = "rfq_accept"
)

// Event is one entry in the simulation's global event order. Events are
// immutable once scheduled and are retained for the run's event log.
//
// Ordering policy:
//  1. Timestamp ascending (millisecond precision)
//  2. Sequence ascending, assigned at schedule time, which is the
//     deterministic tie-break for equal timestamps
type Event struct {
	ID        string    `json:"event_id"`
	Timestamp int64     `json:"ts_ms"`
	Sequence  uint64    `json:"seq_no"`
	Kind      EventKind `json:"kind"`
	Payload   any       `json:"payload"`
}

// OrderIntent is an agent's request to trade, consumed by a mechanism.
type OrderIntent struct {
	IntentID string `json:"intent_id"`
	Owner    string `json:"owner"`
	Side     Side   `json:"side"`
	Price    int64  `json:"price"`
	Quantity int64  `json:"quantity"`
	TIF      TIF    `json:"tif"`
}

// CancelIntent is an agent's request to pull a resting order.
type CancelIntent struct {
	IntentID string `json:"intent_id"`
	Owner    string `json:"owner"`
	OrderID  string `json:"order_id"`
}

// Fill is one execution emitted by a mechanism. Price is always the
// resting (maker) order's price, so the aggressor gets any improvement.
type Fill struct {
	FillID       string `json:"fill_id"`
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`
	Buyer        string `json:"buyer"`
	Seller       string `json:"seller"`
	Price        int64  `json:"price"`
	Quantity     int64  `json:"quantity"`
	Timestamp    int64  `json:"ts_ms"`
}

// News is an information event consumed by agent collaborators. The core
// only orders and logs it.
type News struct {
	Topic string  `json:"topic"`
	Value float64 `json:"value"`
}
