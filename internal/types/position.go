package types

import (
	"github.com/moznion/go-optional"
)

// TieBreakPolicy decides which exit wins when take profit and stop loss are both reached
// within the same candle.
type TieBreakPolicy string

const (
	TieBreakTakeProfit TieBreakPolicy = "take_profit"
	TieBreakStopLoss   TieBreakPolicy = "stop_loss"
)

// Position is an open exposure created by filling an order.
type Position struct {
	ID         uint64                     `yaml:"id" json:"id"`
	Side       PositionSide               `yaml:"side" json:"side"`
	EntryPrice float64                    `yaml:"entry_price" json:"entry_price"`
	Quantity   float64                    `yaml:"quantity" json:"quantity"`
	Exit       optional.Option[OrderType] `yaml:"exit" json:"exit"`
	// OpenIndex is the tick at which the order filled.
	OpenIndex int `yaml:"open_index" json:"open_index"`
}

// NewPositionFromOrder converts a filled order into a position.
// A trailing stop anchor is turned into the initial stop threshold.
func NewPositionFromOrder(order Order, id uint64, index int) Position {
	exit := optional.None[OrderType]()

	if rule, err := order.Exit.Take(); err == nil {
		if rule.Kind == OrderKindTrailingStop {
			rule.Price = initialThreshold(order.PositionSide(), rule)
		}

		exit = optional.Some(rule)
	}

	return Position{
		ID:         id,
		Side:       order.PositionSide(),
		EntryPrice: order.Entry.Price,
		Quantity:   order.Quantity,
		Exit:       exit,
		OpenIndex:  index,
	}
}

func initialThreshold(side PositionSide, rule OrderType) float64 {
	if side == PositionSideShort {
		return shiftPercent(rule.Price, rule.TrailPercent, 1)
	}

	return shiftPercent(rule.Price, rule.TrailPercent, -1)
}

// Cost is the amount committed when the position was opened.
func (p Position) Cost() float64 {
	return mul(p.EntryPrice, p.Quantity)
}

// Profit returns the realized profit of closing the position at exitPrice.
func (p Position) Profit(exitPrice float64) float64 {
	if p.Side == PositionSideShort {
		return diffMul(p.EntryPrice, exitPrice, p.Quantity)
	}

	return diffMul(exitPrice, p.EntryPrice, p.Quantity)
}

// Proceeds is the amount returned to the wallet when closing at exitPrice: the committed cost
// plus the realized profit. It is negative when a short loses more than its cost.
func (p Position) Proceeds(exitPrice float64) float64 {
	return add(p.Cost(), p.Profit(exitPrice))
}

// EstimateProfit returns the unrealized profit at the given mark price.
func (p Position) EstimateProfit(mark float64) float64 {
	return p.Profit(mark)
}

// TrailingThreshold returns the current stop threshold of a trailing stop position.
func (p Position) TrailingThreshold() (float64, bool) {
	rule, err := p.Exit.Take()
	if err != nil || rule.Kind != OrderKindTrailingStop {
		return 0, false
	}

	return rule.Price, true
}

// Evaluate checks the exit rule against the candle and returns the exit price and reason when
// the position must close. A trailing stop threshold is ratcheted before the close test.
func (p *Position) Evaluate(candle Candle, policy TieBreakPolicy) (float64, ExitReason, bool) {
	rule, err := p.Exit.Take()
	if err != nil {
		return 0, "", false
	}

	switch rule.Kind {
	case OrderKindTakeProfitAndStopLoss:
		return p.evaluateTakeProfitAndStopLoss(rule, candle, policy)
	case OrderKindTrailingStop:
		return p.evaluateTrailingStop(rule, candle)
	default:
		return 0, "", false
	}
}

func (p *Position) evaluateTakeProfitAndStopLoss(rule OrderType, candle Candle, policy TieBreakPolicy) (float64, ExitReason, bool) {
	var takeProfitHit, stopLossHit bool

	if p.Side == PositionSideShort {
		takeProfitHit = rule.TakeProfit > 0 && rule.TakeProfit >= candle.Low
		stopLossHit = rule.StopLoss > 0 && rule.StopLoss <= candle.High
	} else {
		takeProfitHit = rule.TakeProfit > 0 && rule.TakeProfit <= candle.High
		stopLossHit = rule.StopLoss > 0 && rule.StopLoss >= candle.Low
	}

	switch {
	case takeProfitHit && stopLossHit:
		if policy == TieBreakStopLoss {
			return rule.StopLoss, ExitReasonStopLoss, true
		}

		return rule.TakeProfit, ExitReasonTakeProfit, true
	case takeProfitHit:
		return rule.TakeProfit, ExitReasonTakeProfit, true
	case stopLossHit:
		return rule.StopLoss, ExitReasonStopLoss, true
	default:
		return 0, "", false
	}
}

func (p *Position) evaluateTrailingStop(rule OrderType, candle Candle) (float64, ExitReason, bool) {
	if p.Side == PositionSideShort {
		if candidate := shiftPercent(candle.Low, rule.TrailPercent, 1); candidate < rule.Price {
			rule.Price = candidate
		}
	} else {
		if candidate := shiftPercent(candle.High, rule.TrailPercent, -1); candidate > rule.Price {
			rule.Price = candidate
		}
	}

	// Snapshots returned to callers share the option's backing array, so store a fresh one.
	p.Exit = optional.Some(rule)

	if p.Side == PositionSideShort {
		if candle.High >= rule.Price {
			return rule.Price, ExitReasonTrailingStop, true
		}

		return 0, "", false
	}

	if candle.Low <= rule.Price {
		return rule.Price, ExitReasonTrailingStop, true
	}

	return 0, "", false
}
