package engine

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for a backtest run.
// Callbacks with an error return abort the run if they return an error.

// OnRunStartCallback is called once before the first candle is processed.
type OnRunStartCallback func(runID string, strategyName string, totalCandles int) error

// OnRunEndCallback is called when the run finishes (always called via defer).
type OnRunEndCallback func(err error)

// OnTickCallback is called after each candle has been fully processed.
type OnTickCallback func(current int, total int) error

// OnIntentRejectedCallback is called when an intent submitted by the strategy is rejected.
// Rejections never abort the run.
type OnIntentRejectedCallback func(intent Intent, err error)

// OnPositionClosedCallback is called after a position has been closed and its event completed.
type OnPositionClosedCallback func(event types.PositionEvent)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart       *OnRunStartCallback
	OnRunEnd         *OnRunEndCallback
	OnTick           *OnTickCallback
	OnIntentRejected *OnIntentRejectedCallback
	OnPositionClosed *OnPositionClosedCallback
}

type IntentKind string

const (
	IntentPlaceOrder        IntentKind = "place_order"
	IntentCancelOrder       IntentKind = "cancel_order"
	IntentClosePosition     IntentKind = "close_position"
	IntentCloseAllPositions IntentKind = "close_all_positions"
)

// Intent is a command queued by a strategy while it processes a candle. The engine applies
// intents in submission order once the strategy returns.
type Intent struct {
	Kind       IntentKind  `yaml:"kind" json:"kind"`
	Order      types.Order `yaml:"order" json:"order"`
	OrderID    string      `yaml:"order_id" json:"order_id"`
	PositionID uint64      `yaml:"position_id" json:"position_id"`
	Price      float64     `yaml:"price" json:"price"`
}

// StrategyContext is the view of the engine handed to a strategy for one candle.
// Queries reflect the state before any of the queued intents are applied.
type StrategyContext interface {
	// Index returns the 0-based index of the candle being processed.
	Index() int
	Balance() float64
	FreeBalance() (float64, error)
	// TotalBalance returns the balance plus the unrealized profit of open positions at mark.
	TotalBalance(mark float64) float64
	Orders() []types.Order
	Positions() []types.Position
	Events() []types.PositionEvent

	// PlaceOrder queues an order and returns the id it will be stored under.
	PlaceOrder(order types.Order) string
	CancelOrder(orderID string)
	ClosePosition(positionID uint64, exitPrice float64)
	CloseAllPositions(exitPrice float64)
}

// Strategy decides what to do on every candle.
type Strategy interface {
	Name() string
	ProcessCandle(ctx StrategyContext, candle types.Candle) error
}

//nolint:interfacebloat // Engine is a core interface that naturally requires multiple methods
type Engine interface {
	// Run feeds every remaining candle to the strategy. The context is checked between candles.
	Run(ctx context.Context, strategy Strategy, callbacks LifecycleCallbacks) error
	// Reset restores the engine to its construction state so the candles can be replayed.
	Reset()

	// PlaceOrder validates the order, locks its cost and appends it to the pending list.
	PlaceOrder(order types.Order) (types.Order, error)
	// DeleteOrder removes a pending order and unlocks its cost.
	DeleteOrder(orderID string) error
	// ExecuteOrders fills the pending orders whose entry price lies within the candle range.
	ExecuteOrders(candle types.Candle) error
	// OpenPosition commits the order cost and opens a position without going through the pending list.
	OpenPosition(order types.Order) (types.Position, error)
	// ExecutePositions evaluates the exit rule of every open position against the candle.
	ExecutePositions(candle types.Candle) error
	// ClosePosition closes a position at exitPrice and returns the realized profit.
	ClosePosition(positionID uint64, exitPrice float64) (float64, error)
	// CloseAllPositions closes every open position at exitPrice and returns the total profit.
	CloseAllPositions(exitPrice float64) (float64, error)

	Balance() float64
	FreeBalance() (float64, error)
	TotalBalance(mark float64) float64
	Locked() float64
	Orders() []types.Order
	Positions() []types.Position
	Events() []types.PositionEvent

	Index() int
	Candles() []types.Candle
	// CurrentCandle returns the candle at the current index.
	CurrentCandle() (types.Candle, error)
	// Advance moves to the next candle and reports whether one is left.
	Advance() bool
}
