package engine

import (
	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

// backtestStrategyContext collects the intents of one ProcessCandle call.
type backtestStrategyContext struct {
	backtest *BacktestEngineV1
	intents  []engine.Intent
}

var _ engine.StrategyContext = (*backtestStrategyContext)(nil)

func newStrategyContext(b *BacktestEngineV1) *backtestStrategyContext {
	return &backtestStrategyContext{
		backtest: b,
		intents:  nil,
	}
}

func (c *backtestStrategyContext) Index() int {
	return c.backtest.Index()
}

func (c *backtestStrategyContext) Balance() float64 {
	return c.backtest.Balance()
}

func (c *backtestStrategyContext) FreeBalance() (float64, error) {
	return c.backtest.FreeBalance()
}

func (c *backtestStrategyContext) TotalBalance(mark float64) float64 {
	return c.backtest.TotalBalance(mark)
}

func (c *backtestStrategyContext) Orders() []types.Order {
	return c.backtest.Orders()
}

func (c *backtestStrategyContext) Positions() []types.Position {
	return c.backtest.Positions()
}

func (c *backtestStrategyContext) Events() []types.PositionEvent {
	return c.backtest.Events()
}

func (c *backtestStrategyContext) PlaceOrder(order types.Order) string {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	c.intents = append(c.intents, engine.Intent{Kind: engine.IntentPlaceOrder, Order: order})

	return order.ID
}

func (c *backtestStrategyContext) CancelOrder(orderID string) {
	c.intents = append(c.intents, engine.Intent{Kind: engine.IntentCancelOrder, OrderID: orderID})
}

func (c *backtestStrategyContext) ClosePosition(positionID uint64, exitPrice float64) {
	c.intents = append(c.intents, engine.Intent{Kind: engine.IntentClosePosition, PositionID: positionID, Price: exitPrice})
}

func (c *backtestStrategyContext) CloseAllPositions(exitPrice float64) {
	c.intents = append(c.intents, engine.Intent{Kind: engine.IntentCloseAllPositions, Price: exitPrice})
}

// applyIntents applies the queued intents in submission order. A rejected intent is logged and
// reported, and the remaining intents still run.
func (b *BacktestEngineV1) applyIntents(intents []engine.Intent) {
	for _, intent := range intents {
		var err error

		switch intent.Kind {
		case engine.IntentPlaceOrder:
			_, err = b.PlaceOrder(intent.Order)
		case engine.IntentCancelOrder:
			err = b.DeleteOrder(intent.OrderID)
		case engine.IntentClosePosition:
			_, err = b.ClosePosition(intent.PositionID, intent.Price)
		case engine.IntentCloseAllPositions:
			_, err = b.CloseAllPositions(intent.Price)
		}

		if err == nil {
			continue
		}

		b.log.Warn("Intent rejected",
			zap.String("kind", string(intent.Kind)),
			zap.Int("index", b.index),
			zap.Error(err),
		)

		if b.callbacks.OnIntentRejected != nil {
			(*b.callbacks.OnIntentRejected)(intent, err)
		}
	}
}
