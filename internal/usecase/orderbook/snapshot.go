package orderbook

import (
	"fmt"

	orderbookv1 "github.com/jvsteiner/orderlib/internal/domain/orderbook/v1"
	snapshotv1 "github.com/jvsteiner/orderlib/internal/domain/snapshot/v1"
)

// CreateSnapshot flattens both books and the sequence counters into a
// snapshot. Orders appear in priority order, bids first.
func (ob *Orderbook) CreateSnapshot() *snapshotv1.Snapshot {
	orders := make([]snapshotv1.BookOrder, 0, ob.bids.Len()+ob.asks.Len())

	flatten := func(book *orderbookv1.Book) {
		book.Ascend(func(o orderbookv1.Order) bool {
			orders = append(orders, snapshotv1.BookOrder{
				Sequence:  o.Sequence,
				Side:      string(o.Side),
				Type:      string(o.Type),
				Size:      o.Size,
				Price:     o.Price,
				Timestamp: o.Timestamp,
			})
			return true
		})
	}
	flatten(ob.bids)
	flatten(ob.asks)

	return &snapshotv1.Snapshot{
		OrderBookSnapshot: snapshotv1.OrderBookSnapshot{
			Orders:        orders,
			OrderSequence: ob.orderSequence,
			FillSequence:  ob.fillSequence,
		},
	}
}

// RestoreOrderbook rebuilds both books and the sequence counters from a
// snapshot, replacing the current state. A nil snapshot is a no-op. The
// counters never move backwards past a restored order's sequence.
func (ob *Orderbook) RestoreOrderbook(snapshot *snapshotv1.Snapshot) error {
	if snapshot == nil {
		return nil
	}

	bids := orderbookv1.NewBook(orderbookv1.SideBuy)
	asks := orderbookv1.NewBook(orderbookv1.SideSell)

	var maxSequence int64
	seen := make(map[int64]struct{}, len(snapshot.OrderBookSnapshot.Orders))

	for _, bo := range snapshot.OrderBookSnapshot.Orders {
		if _, dup := seen[bo.Sequence]; dup {
			return fmt.Errorf("duplicate sequence %d in snapshot", bo.Sequence)
		}
		seen[bo.Sequence] = struct{}{}

		order := orderbookv1.Order{
			Side:      orderbookv1.Side(bo.Side),
			Type:      orderbookv1.OrderType(bo.Type),
			Size:      bo.Size,
			Price:     bo.Price,
			Sequence:  bo.Sequence,
			Timestamp: bo.Timestamp,
		}

		switch order.Side {
		case orderbookv1.SideBuy:
			bids.Insert(order)
		case orderbookv1.SideSell:
			asks.Insert(order)
		default:
			return fmt.Errorf("unknown side %q in snapshot", bo.Side)
		}

		if bo.Sequence > maxSequence {
			maxSequence = bo.Sequence
		}
	}

	ob.bids = bids
	ob.asks = asks

	ob.orderSequence = snapshot.OrderBookSnapshot.OrderSequence
	if ob.orderSequence <= maxSequence {
		ob.orderSequence = maxSequence + 1
	}
	if ob.orderSequence < 1 {
		ob.orderSequence = 1
	}

	ob.fillSequence = snapshot.OrderBookSnapshot.FillSequence
	if ob.fillSequence < 1 {
		ob.fillSequence = 1
	}

	return nil
}
