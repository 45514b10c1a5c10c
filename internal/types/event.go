package types

import (
	"github.com/moznion/go-optional"
)

type ExitReason string

const (
	ExitReasonTakeProfit   ExitReason = "take_profit"
	ExitReasonStopLoss     ExitReason = "stop_loss"
	ExitReasonTrailingStop ExitReason = "trailing_stop"
	ExitReasonManual       ExitReason = "manual"
)

// PositionEvent is the audit record of one position. It is appended when the position opens
// and completed in place when it closes.
type PositionEvent struct {
	PositionID uint64                   `yaml:"position_id" json:"position_id"`
	OpenIndex  int                      `yaml:"open_index" json:"open_index"`
	Side       PositionSide             `yaml:"side" json:"side"`
	EntryPrice float64                  `yaml:"entry_price" json:"entry_price"`
	Quantity   float64                  `yaml:"quantity" json:"quantity"`
	CloseIndex optional.Option[int]     `yaml:"close_index" json:"close_index"`
	ExitPrice  optional.Option[float64] `yaml:"exit_price" json:"exit_price"`
	Profit     optional.Option[float64] `yaml:"profit" json:"profit"`
	// Reason is empty while the position is open.
	Reason ExitReason `yaml:"reason" json:"reason"`
}

func NewPositionEvent(position Position) PositionEvent {
	return PositionEvent{
		PositionID: position.ID,
		OpenIndex:  position.OpenIndex,
		Side:       position.Side,
		EntryPrice: position.EntryPrice,
		Quantity:   position.Quantity,
		CloseIndex: optional.None[int](),
		ExitPrice:  optional.None[float64](),
		Profit:     optional.None[float64](),
		Reason:     "",
	}
}

// Close records the close tick, exit price, realized profit and reason.
func (e *PositionEvent) Close(index int, exitPrice, profit float64, reason ExitReason) {
	e.CloseIndex = optional.Some(index)
	e.ExitPrice = optional.Some(exitPrice)
	e.Profit = optional.Some(profit)
	e.Reason = reason
}

func (e PositionEvent) IsClosed() bool {
	return e.CloseIndex.IsSome()
}

// HoldingTicks returns the number of ticks between open and close, or false while open.
func (e PositionEvent) HoldingTicks() (int, bool) {
	closeIndex, err := e.CloseIndex.Take()
	if err != nil {
		return 0, false
	}

	return closeIndex - e.OpenIndex, true
}
