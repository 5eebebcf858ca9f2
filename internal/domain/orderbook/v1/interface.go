package orderbookv1

import snapshotv1 "github.com/jvsteiner/orderlib/internal/domain/snapshot/v1"

// Orderbook defines the interface for a single-instrument order book.
type Orderbook interface {
	Add(order Order) (int64, []Fill, error)
	Remove(order Order) bool
	Replace(order Order) (Order, bool)
	BestBid() (Order, bool)
	BestOffer() (Order, bool)
	LenBids() int
	LenOffers() int
	BidTotalVolume() int64
	AskTotalVolume() int64
	SizeAtLimit(side Side, limit float64) (LimitReport, bool)
	LimitAtSize(side Side, size int64) (LimitReport, bool)
	CreateSnapshot() *snapshotv1.Snapshot
	RestoreOrderbook(snapshot *snapshotv1.Snapshot) error
}
