package snapshotv1

// Snapshot represents the engine state at a specific point in the order feed.
type Snapshot struct {
	OrderOffset       int64             `json:"orderOffset"`
	OrderBookSnapshot OrderBookSnapshot `json:"orderBookSnapshot"`
}

// OrderBookSnapshot represents the state of the order book at a specific point in time.
type OrderBookSnapshot struct {
	Orders        []BookOrder `json:"orders"`
	OrderSequence int64       `json:"orderSequence"`
	FillSequence  int64       `json:"fillSequence"`
}

// BookOrder represents a resting order in the order book with its details.
type BookOrder struct {
	Sequence  int64  `json:"sequence"`
	OrderID   string `json:"orderID"`
	UserID    string `json:"userID"`
	Side      string `json:"side"`
	Type      string `json:"type"`
	Size      int64  `json:"size"`
	Price     int64  `json:"price"`
	Timestamp int64  `json:"timestamp"`
}
