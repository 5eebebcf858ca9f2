package orderbookv1

import "github.com/google/btree"

// bookDegree is the branching factor of the B-tree backing each side.
const bookDegree = 32

// Book holds one side's resting orders in priority order. The sort key is
// (side-favorable price, ascending sequence); the identity key is the
// sequence number alone, so lookups and removals never depend on mutable
// content. Callers receive copies, never references into the book.
type Book struct {
	side   Side
	tree   *btree.BTreeG[*Order]
	orders map[int64]*Order // sequence -> resting order
}

// NewBook creates an empty book for the given side.
func NewBook(side Side) *Book {
	return &Book{
		side:   side,
		tree:   btree.NewG(bookDegree, lessBySide(side)),
		orders: make(map[int64]*Order),
	}
}

// lessBySide returns the ordering for one side's tree. The minimum element is
// the best order: buys rank higher prices first, sells rank lower prices
// first. Equal prices fall back to ascending sequence so earlier orders keep
// priority.
func lessBySide(side Side) btree.LessFunc[*Order] {
	if side == SideBuy {
		return func(a, b *Order) bool {
			if a.Price != b.Price {
				return a.Price > b.Price
			}
			return a.Sequence < b.Sequence
		}
	}
	return func(a, b *Order) bool {
		if a.Price != b.Price {
			return a.Price < b.Price
		}
		return a.Sequence < b.Sequence
	}
}

// Side returns which side of the book this is.
func (b *Book) Side() Side {
	return b.side
}

// Len returns the number of resting orders.
func (b *Book) Len() int {
	return len(b.orders)
}

// Insert adds an order to the book. The order must carry a sequence number
// not already resting on this side.
func (b *Book) Insert(order Order) {
	o := order
	b.tree.ReplaceOrInsert(&o)
	b.orders[o.Sequence] = &o
}

// Best returns a copy of the highest-priority resting order.
func (b *Book) Best() (Order, bool) {
	o, ok := b.tree.Min()
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Get returns a copy of the resting order with the given sequence number.
func (b *Book) Get(sequence int64) (Order, bool) {
	o, ok := b.orders[sequence]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Remove deletes the order with the given sequence number and reports
// whether it was present.
func (b *Book) Remove(sequence int64) (Order, bool) {
	o, ok := b.orders[sequence]
	if !ok {
		return Order{}, false
	}
	b.tree.Delete(o)
	delete(b.orders, sequence)
	return *o, true
}

// Replace swaps the stored content of the order identified by the incoming
// order's sequence number, returning the previous content. The sequence
// number is kept, so a replacement with an unchanged price keeps the order's
// time priority.
func (b *Book) Replace(order Order) (Order, bool) {
	prev, ok := b.orders[order.Sequence]
	if !ok {
		return Order{}, false
	}
	previous := *prev
	b.tree.Delete(prev)

	next := order
	b.tree.ReplaceOrInsert(&next)
	b.orders[next.Sequence] = &next

	return previous, true
}

// ReduceBest shrinks the best order's size in place after a partial fill.
// Size is not part of the sort key, so the order keeps its position. The
// caller guarantees delta is positive and smaller than the best order's size.
func (b *Book) ReduceBest(delta int64) {
	o, ok := b.tree.Min()
	if !ok {
		return
	}
	o.Size -= delta
}

// Ascend walks the book in priority order, best first, passing a copy of
// each order to fn until fn returns false or the book is exhausted.
func (b *Book) Ascend(fn func(o Order) bool) {
	b.tree.Ascend(func(o *Order) bool {
		return fn(*o)
	})
}

// TotalVolume returns the summed size of all resting orders.
func (b *Book) TotalVolume() int64 {
	var total int64
	for _, o := range b.orders {
		total += o.Size
	}
	return total
}
