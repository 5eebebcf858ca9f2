package orderbookv1

// LimitReport represents an aggregated depth query result: the
// volume-weighted average price over Size units of the book.
type LimitReport struct {
	Price float64 `json:"price"`
	Size  int64   `json:"size"`
}
