package orderbook

import (
	"time"

	orderbookv1 "github.com/jvsteiner/orderlib/internal/domain/orderbook/v1"
)

// Orderbook matches orders for a single instrument. It performs no locking
// and spawns nothing; one instance has one owner, and that owner serializes
// access. Multiple instruments run as independent instances.
type Orderbook struct {
	bids *orderbookv1.Book
	asks *orderbookv1.Book

	orderSequence int64
	fillSequence  int64
}

// NewOrderbook creates an empty orderbook. Sequence counters start at 1, so
// sequence 0 always means "not yet admitted".
func NewOrderbook() *Orderbook {
	return &Orderbook{
		bids:          orderbookv1.NewBook(orderbookv1.SideBuy),
		asks:          orderbookv1.NewBook(orderbookv1.SideSell),
		orderSequence: 1,
		fillSequence:  1,
	}
}

// Add admits an order: it is assigned the next sequence number, matched
// against the opposite book, and any remainder rests according to its
// behavior variant. The assigned sequence and the executions are returned in
// match order. Errors are contract violations only; a rejected order gets no
// sequence.
func (ob *Orderbook) Add(order orderbookv1.Order) (int64, []orderbookv1.Fill, error) {
	if err := validate(order); err != nil {
		return 0, nil, err
	}

	own, opposite := ob.sideBooks(order.Side)

	order.Sequence = ob.nextOrderSequence()
	if order.Timestamp == 0 {
		order.Timestamp = time.Now().UnixNano()
	}

	// All-or-nothing variants check fillability before touching the book.
	switch order.Type {
	case orderbookv1.OrderTypeFOK:
		if !ob.fillable(order, opposite) {
			return order.Sequence, nil, nil
		}
	case orderbookv1.OrderTypeAON:
		if !ob.fillable(order, opposite) {
			own.Insert(order)
			return order.Sequence, nil, nil
		}
	}

	fills := ob.trade(&order, opposite)

	// IOC and FOK remainders never rest.
	if order.Size > 0 && order.Type != orderbookv1.OrderTypeIOC && order.Type != orderbookv1.OrderTypeFOK {
		own.Insert(order)
	}

	return order.Sequence, fills, nil
}

// Remove cancels a resting order. Lookup is keyed by the argument's side and
// sequence number alone; stale size, price or timestamp in the caller's copy
// cannot hit a different order. Returns false when nothing rested under that
// sequence, so a second cancel is a no-op.
func (ob *Orderbook) Remove(order orderbookv1.Order) bool {
	own, _ := ob.sideBooks(order.Side)
	_, ok := own.Remove(order.Sequence)
	return ok
}

// Replace swaps the content of the resting order carrying the argument's
// sequence number and returns the previous content. The sequence is kept, so
// a replacement with an unchanged price keeps its time priority. The caller
// guarantees the replacement content is valid.
func (ob *Orderbook) Replace(order orderbookv1.Order) (orderbookv1.Order, bool) {
	own, _ := ob.sideBooks(order.Side)
	return own.Replace(order)
}

// BestBid returns a copy of the highest-priority resting buy order.
func (ob *Orderbook) BestBid() (orderbookv1.Order, bool) {
	return ob.bids.Best()
}

// BestOffer returns a copy of the highest-priority resting sell order.
func (ob *Orderbook) BestOffer() (orderbookv1.Order, bool) {
	return ob.asks.Best()
}

// LenBids returns the number of resting buy orders.
func (ob *Orderbook) LenBids() int {
	return ob.bids.Len()
}

// LenOffers returns the number of resting sell orders.
func (ob *Orderbook) LenOffers() int {
	return ob.asks.Len()
}

// BidTotalVolume returns the summed size of all resting buy orders.
func (ob *Orderbook) BidTotalVolume() int64 {
	return ob.bids.TotalVolume()
}

// AskTotalVolume returns the summed size of all resting sell orders.
func (ob *Orderbook) AskTotalVolume() int64 {
	return ob.asks.TotalVolume()
}

// trade walks the opposite book in priority order, filling the aggressor
// until it stops crossing or its size is exhausted. Fill prices are always
// the resting order's price. A partially consumed resting order keeps its
// sequence and therefore its position; a fully consumed one leaves the book
// immediately.
func (ob *Orderbook) trade(aggressor *orderbookv1.Order, opposite *orderbookv1.Book) []orderbookv1.Fill {
	var fills []orderbookv1.Fill

	for aggressor.Size > 0 {
		best, ok := opposite.Best()
		if !ok {
			break
		}
		if !aggressor.Crosses(best.Price) {
			break
		}

		size := aggressor.Size
		if best.Size < size {
			size = best.Size
		}

		fills = append(fills, orderbookv1.Fill{
			ID:            ob.nextFillSequence(),
			Price:         best.Price,
			Size:          size,
			Side:          aggressor.Side,
			TakerSequence: aggressor.Sequence,
			MakerSequence: best.Sequence,
			Timestamp:     time.Now().UnixNano(),
		})

		if size < best.Size {
			opposite.ReduceBest(size)
		} else {
			opposite.Remove(best.Sequence)
		}

		aggressor.Size -= size
	}

	return fills
}

// fillable reports whether the order could execute in full against the
// opposite book right now. The walk is read-only: it accumulates available
// size in priority order while the order still crosses.
func (ob *Orderbook) fillable(order orderbookv1.Order, opposite *orderbookv1.Book) bool {
	var available int64
	opposite.Ascend(func(o orderbookv1.Order) bool {
		if !order.Crosses(o.Price) {
			return false
		}
		available += o.Size
		return available < order.Size
	})
	return available >= order.Size
}

// sideBooks returns the own and opposite books for the given side.
func (ob *Orderbook) sideBooks(side orderbookv1.Side) (own, opposite *orderbookv1.Book) {
	if side == orderbookv1.SideBuy {
		return ob.bids, ob.asks
	}
	return ob.asks, ob.bids
}

// nextOrderSequence hands out admission sequence numbers, monotonically
// increasing and never reused.
func (ob *Orderbook) nextOrderSequence() int64 {
	seq := ob.orderSequence
	ob.orderSequence++
	return seq
}

// nextFillSequence hands out fill identifiers, monotonically increasing.
func (ob *Orderbook) nextFillSequence() int64 {
	seq := ob.fillSequence
	ob.fillSequence++
	return seq
}

// validate checks the admission contract. Market orders may omit the price;
// every other variant must carry a positive one.
func validate(order orderbookv1.Order) error {
	if order.Side != orderbookv1.SideBuy && order.Side != orderbookv1.SideSell {
		return orderbookv1.ErrInvalidSide
	}
	if order.Size <= 0 {
		return orderbookv1.ErrInvalidSize
	}
	if order.Type == orderbookv1.OrderTypeMarket {
		if order.Price < 0 {
			return orderbookv1.ErrInvalidPrice
		}
		return nil
	}
	if order.Price <= 0 {
		return orderbookv1.ErrInvalidPrice
	}
	return nil
}
