package orderreaderv1

import (
	orderbookv1 "github.com/jvsteiner/orderlib/internal/domain/orderbook/v1"
)

// Action represents the operation an order request asks of the book.
type Action string

const (
	// ActionPlace admits a new order into the book.
	ActionPlace Action = "place"
	// ActionCancel removes a resting order.
	ActionCancel Action = "cancel"
	// ActionReplace swaps the content of a resting order.
	ActionReplace Action = "replace"
)

// OrderRequest represents a single order instruction on the feed.
type OrderRequest struct {
	OrderID  string                `json:"orderID"`
	UserID   string                `json:"userID"`
	Action   Action                `json:"action"`
	Type     orderbookv1.OrderType `json:"type"`
	Side     orderbookv1.Side      `json:"side"`
	Size     int64                 `json:"size"`
	Price    int64                 `json:"price"`
	Sequence int64                 `json:"sequence"` // resting order targeted by cancel/replace
	Offset   int64                 // Offset for the order in the stream
}
