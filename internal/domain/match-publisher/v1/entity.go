package matchpublisherv1

import (
	"encoding/json"

	orderbookv1 "github.com/jvsteiner/orderlib/internal/domain/orderbook/v1"
)

// FillEvent represents a single execution published to the match topic.
type FillEvent struct {
	FillID        int64            `json:"fillID"`
	Pair          string           `json:"pair"`
	Price         int64            `json:"price"`
	Size          int64            `json:"size"`
	TakerSide     orderbookv1.Side `json:"takerSide"`
	TakerSequence int64            `json:"takerSequence"`
	MakerSequence int64            `json:"makerSequence"`
	TakerOrderID  string           `json:"takerOrderID,omitempty"`
	TakerUserID   string           `json:"takerUserID,omitempty"`
	MakerOrderID  string           `json:"makerOrderID,omitempty"`
	MakerUserID   string           `json:"makerUserID,omitempty"`
	Timestamp     int64            `json:"timestamp"`
}

// CreateFromFill creates a fill event from a fill produced by the order book.
func CreateFromFill(fill orderbookv1.Fill, pair string) FillEvent {
	return FillEvent{
		FillID:        fill.ID,
		Pair:          pair,
		Price:         fill.Price,
		Size:          fill.Size,
		TakerSide:     fill.Side,
		TakerSequence: fill.TakerSequence,
		MakerSequence: fill.MakerSequence,
		Timestamp:     fill.Timestamp,
	}
}

// ToBytes converts the fill event to a byte array.
func ToBytes(event FillEvent) []byte {
	data, err := json.Marshal(event)
	if err != nil {
		return nil
	}

	return data
}

// FromBytes converts a byte array to a fill event.
func FromBytes(data []byte) *FillEvent {
	var event FillEvent
	err := json.Unmarshal(data, &event)
	if err != nil {
		return nil
	}
	return &event
}
