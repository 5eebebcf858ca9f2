package orderbook

import (
	orderbookv1 "github.com/jvsteiner/orderlib/internal/domain/orderbook/v1"
)

// SizeAtLimit reports the maximum size the given side could execute against
// the opposite book while keeping the cumulative VWAP within limit, together
// with that VWAP. The walk runs in priority order and stops at the first
// order that can contribute nothing. Returns false when no size qualifies.
func (ob *Orderbook) SizeAtLimit(side orderbookv1.Side, limit float64) (orderbookv1.LimitReport, bool) {
	_, opposite := ob.sideBooks(side)

	var swept, found int64
	opposite.Ascend(func(o orderbookv1.Order) bool {
		size := quantityWithinLimit(side, limit, o, swept, found)
		if size <= 0 {
			return false
		}
		swept += size * o.Price
		found += size
		return true
	})

	if found == 0 {
		return orderbookv1.LimitReport{}, false
	}
	return orderbookv1.LimitReport{
		Price: float64(swept) / float64(found),
		Size:  found,
	}, true
}

// LimitAtSize reports the VWAP the given side would get executing size units
// against the opposite book in priority order. When the book holds less than
// size, the report covers what was found. Returns false when size is zero or
// nothing rests opposite.
func (ob *Orderbook) LimitAtSize(side orderbookv1.Side, size int64) (orderbookv1.LimitReport, bool) {
	if size <= 0 {
		return orderbookv1.LimitReport{}, false
	}

	_, opposite := ob.sideBooks(side)

	var swept, found int64
	opposite.Ascend(func(o orderbookv1.Order) bool {
		take := o.Size
		if remaining := size - found; take > remaining {
			take = remaining
		}
		swept += take * o.Price
		found += take
		return found < size
	})

	if found == 0 {
		return orderbookv1.LimitReport{}, false
	}
	return orderbookv1.LimitReport{
		Price: float64(swept) / float64(found),
		Size:  found,
	}, true
}

// quantityWithinLimit returns how much of the resting order can join the
// accumulated (swept, found) without pushing the VWAP past the participant's
// limit. An order at least as favorable as the limit joins in full; a less
// favorable one joins up to the quantity that lands the VWAP exactly on the
// limit, rounded down.
func quantityWithinLimit(side orderbookv1.Side, limit float64, o orderbookv1.Order, swept, found int64) int64 {
	price := float64(o.Price)

	if side == orderbookv1.SideBuy {
		if price <= limit {
			return o.Size
		}
		q := int64((limit*float64(found) - float64(swept)) / (price - limit))
		if q > o.Size {
			return o.Size
		}
		return q
	}

	if price >= limit {
		return o.Size
	}
	q := int64((float64(swept) - limit*float64(found)) / (limit - price))
	if q > o.Size {
		return o.Size
	}
	return q
}
