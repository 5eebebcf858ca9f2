package orderbookv1

import (
	"errors"
	"time"
)

// Side represents which half of the book an order belongs to.
type Side string

const (
	// SideBuy represents a buy (bid) order.
	SideBuy Side = "buy"
	// SideSell represents a sell (ask) order.
	SideSell Side = "sell"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType represents the behavior variant of an order.
type OrderType string

const (
	// OrderTypeLimit rests any unmatched remainder at its limit price.
	OrderTypeLimit OrderType = "limit"
	// OrderTypeMarket crosses the best available prices without a limit check.
	OrderTypeMarket OrderType = "market"
	// OrderTypeIOC fills what it can immediately and discards the remainder.
	OrderTypeIOC OrderType = "ioc"
	// OrderTypeFOK executes completely and immediately or not at all.
	OrderTypeFOK OrderType = "fok"
	// OrderTypeAON executes completely at admission or rests untouched.
	OrderTypeAON OrderType = "aon"
)

var (
	// ErrInvalidSize is returned when an order is admitted with a non-positive size.
	ErrInvalidSize = errors.New("order size must be positive")
	// ErrInvalidPrice is returned when an order is admitted with an invalid price.
	ErrInvalidPrice = errors.New("order price must be positive")
	// ErrInvalidSide is returned when an order carries an unknown side.
	ErrInvalidSide = errors.New("order side must be buy or sell")
)

// Order represents a single order. Price and Sequence never change after
// admission; Size is the only field reduced by partial fills.
type Order struct {
	Side      Side      `json:"side"`
	Type      OrderType `json:"type"`
	Size      int64     `json:"size"`
	Price     int64     `json:"price"`
	Sequence  int64     `json:"sequence"`
	Timestamp int64     `json:"timestamp"`
}

// NewOrder creates a new order with the given parameters. The sequence
// number is assigned at admission.
func NewOrder(side Side, orderType OrderType, size, price int64) Order {
	return Order{
		Side:      side,
		Type:      orderType,
		Size:      size,
		Price:     price,
		Timestamp: time.Now().UnixNano(),
	}
}

// IsBid checks if the order is a bid (buy) order.
func (o Order) IsBid() bool {
	return o.Side == SideBuy
}

// IsAsk checks if the order is an ask (sell) order.
func (o Order) IsAsk() bool {
	return o.Side == SideSell
}

// IsFilled checks if the order is filled (size is zero).
func (o Order) IsFilled() bool {
	return o.Size == 0
}

// Crosses reports whether the order would trade against a resting order at
// the given opposite-side price. Market orders cross any price.
func (o Order) Crosses(price int64) bool {
	if o.Type == OrderTypeMarket {
		return true
	}
	if o.Side == SideBuy {
		return price <= o.Price
	}
	return price >= o.Price
}
