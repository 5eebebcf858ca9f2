package orderbookv1

// Fill represents one matched quantity between an aggressor and a resting
// order. Price is always the resting order's price.
type Fill struct {
	ID            int64 `json:"id"`
	Price         int64 `json:"price"`
	Size          int64 `json:"size"`
	Side          Side  `json:"side"` // The aggressor's side
	TakerSequence int64 `json:"takerSequence"`
	MakerSequence int64 `json:"makerSequence"`
	Timestamp     int64 `json:"timestamp"`
}
