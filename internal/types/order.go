package types

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type OrderSide string

type PositionSide string

type OrderKind string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

const (
	// Entry kinds open a position.
	OrderKindMarket OrderKind = "MARKET"
	OrderKindLimit  OrderKind = "LIMIT"
	// Exit kinds close one.
	OrderKindTakeProfitAndStopLoss OrderKind = "TAKE_PROFIT_AND_STOP_LOSS"
	OrderKindTrailingStop          OrderKind = "TRAILING_STOP"
)

// OrderType describes either how an order enters the market or how the resulting position exits.
//
// Price is the entry price for MARKET and LIMIT. For TRAILING_STOP it is the anchor price on an
// order and the current stop threshold once carried by a position.
// TakeProfit and StopLoss are only used by TAKE_PROFIT_AND_STOP_LOSS; zero means "not set".
type OrderType struct {
	Kind         OrderKind `yaml:"kind" json:"kind" validate:"required,oneof=MARKET LIMIT TAKE_PROFIT_AND_STOP_LOSS TRAILING_STOP"`
	Price        float64   `yaml:"price" json:"price"`
	TakeProfit   float64   `yaml:"take_profit" json:"take_profit"`
	StopLoss     float64   `yaml:"stop_loss" json:"stop_loss"`
	TrailPercent float64   `yaml:"trail_percent" json:"trail_percent"`
}

func Market(price float64) OrderType {
	return OrderType{Kind: OrderKindMarket, Price: price}
}

func Limit(price float64) OrderType {
	return OrderType{Kind: OrderKindLimit, Price: price}
}

// TakeProfitAndStopLoss builds an exit rule. Pass 0 to leave either side unset.
func TakeProfitAndStopLoss(takeProfit, stopLoss float64) OrderType {
	return OrderType{Kind: OrderKindTakeProfitAndStopLoss, TakeProfit: takeProfit, StopLoss: stopLoss}
}

// TrailingStop builds an exit rule trailing percent% behind the best price seen since anchor.
func TrailingStop(anchor, percent float64) OrderType {
	return OrderType{Kind: OrderKindTrailingStop, Price: anchor, TrailPercent: percent}
}

func (t OrderType) IsEntry() bool {
	return t.Kind == OrderKindMarket || t.Kind == OrderKindLimit
}

func (t OrderType) IsExit() bool {
	return t.Kind == OrderKindTakeProfitAndStopLoss || t.Kind == OrderKindTrailingStop
}

func (t OrderType) validateExit() error {
	switch t.Kind {
	case OrderKindTakeProfitAndStopLoss:
		if !(t.TakeProfit >= 0) || !(t.StopLoss >= 0) || math.IsInf(t.TakeProfit, 0) || math.IsInf(t.StopLoss, 0) {
			return errors.Newf(errors.ErrCodeNegTakeProfitAndStopLoss,
				"take profit and stop loss must be positive (got tp=%v, sl=%v)", t.TakeProfit, t.StopLoss)
		}
	case OrderKindTrailingStop:
		if !(t.Price > 0) || !(t.TrailPercent > 0) || t.TrailPercent >= 100 || math.IsInf(t.Price, 0) {
			return errors.Newf(errors.ErrCodeNegZeroTrailingStop,
				"trailing stop needs a positive anchor and a percent in (0, 100) (got anchor=%v, percent=%v)", t.Price, t.TrailPercent)
		}
	default:
		return errors.Newf(errors.ErrCodeMismatchedOrderType, "%s cannot be used to close a position", t.Kind)
	}

	return nil
}

// Order is an entry intent submitted by a strategy. It lives in the engine's pending list
// until it fills or is cancelled.
type Order struct {
	// ID is assigned by the engine when empty.
	ID       string                     `yaml:"id" json:"id" validate:"omitempty,uuid"`
	Entry    OrderType                  `yaml:"entry" json:"entry"`
	Exit     optional.Option[OrderType] `yaml:"exit" json:"exit"`
	Quantity float64                    `yaml:"quantity" json:"quantity" validate:"gt=0"`
	Side     OrderSide                  `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
}

// NewOrder creates a validated order without an exit rule.
func NewOrder(entry OrderType, quantity float64, side OrderSide) (Order, error) {
	order := Order{
		ID:       "",
		Entry:    entry,
		Exit:     optional.None[OrderType](),
		Quantity: quantity,
		Side:     side,
	}

	if err := order.Validate(); err != nil {
		return Order{}, err
	}

	return order, nil
}

// NewOrderWithExit creates a validated order whose position will close on the given exit rule.
func NewOrderWithExit(entry OrderType, exit OrderType, quantity float64, side OrderSide) (Order, error) {
	order := Order{
		ID:       "",
		Entry:    entry,
		Exit:     optional.Some(exit),
		Quantity: quantity,
		Side:     side,
	}

	if err := order.Validate(); err != nil {
		return Order{}, err
	}

	return order, nil
}

// Validate checks the order fields, the entry/exit kinds and the exit rule parameters.
func (o *Order) Validate() error {
	validate := validator.New()

	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if math.IsInf(o.Quantity, 0) {
		return errors.Newf(errors.ErrCodeInvalidOrder, "quantity must be finite (got %v)", o.Quantity)
	}

	if !o.Entry.IsEntry() {
		return errors.Newf(errors.ErrCodeMismatchedOrderType, "%s cannot be used to open a position", o.Entry.Kind)
	}

	if !(o.Entry.Price > 0) || math.IsInf(o.Entry.Price, 0) {
		return errors.Newf(errors.ErrCodeInvalidOrder, "entry price must be positive (got %v)", o.Entry.Price)
	}

	if o.Exit.IsSome() {
		if err := o.Exit.Unwrap().validateExit(); err != nil {
			return err
		}
	}

	return nil
}

func (o Order) EntryPrice() float64 {
	return o.Entry.Price
}

// Cost is the amount reserved while the order is pending and committed when it fills.
func (o Order) Cost() float64 {
	return mul(o.Entry.Price, o.Quantity)
}

func (o Order) PositionSide() PositionSide {
	if o.Side == OrderSideSell {
		return PositionSideShort
	}

	return PositionSideLong
}
