package engine

import (
	"slices"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// PlaceOrder implements engine.Engine.
// The order cost is locked in the wallet; on failure nothing is stored and the wallet is unchanged.
func (b *BacktestEngineV1) PlaceOrder(order types.Order) (types.Order, error) {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	if err := order.Validate(); err != nil {
		return types.Order{}, err
	}

	if slices.ContainsFunc(b.orders, func(o types.Order) bool { return o.ID == order.ID }) {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidOrder, "order %s is already pending", order.ID)
	}

	cost := order.Cost()
	if !b.wallet.Lock(cost) {
		return types.Order{}, errors.NewInsufficientFunds(cost, b.wallet.FreeBalance())
	}

	b.orders = append(b.orders, order)

	b.log.Debug("Order placed",
		zap.String("order_id", order.ID),
		zap.String("side", string(order.Side)),
		zap.String("kind", string(order.Entry.Kind)),
		zap.Float64("price", order.EntryPrice()),
		zap.Float64("quantity", order.Quantity),
		zap.Float64("cost", cost),
	)

	return order, nil
}

// DeleteOrder implements engine.Engine.
func (b *BacktestEngineV1) DeleteOrder(orderID string) error {
	idx := slices.IndexFunc(b.orders, func(o types.Order) bool { return o.ID == orderID })
	if idx < 0 {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order %s not found", orderID)
	}

	order := b.orders[idx]
	b.orders = slices.Delete(b.orders, idx, idx+1)
	b.wallet.Unlock(order.Cost())

	b.log.Debug("Order deleted", zap.String("order_id", orderID))

	return nil
}

// ExecuteOrders implements engine.Engine.
// Orders are scanned in placement order. An order fills when its entry price lies within
// [Low, High]; otherwise it stays pending.
func (b *BacktestEngineV1) ExecuteOrders(candle types.Candle) error {
	remaining := make([]types.Order, 0, len(b.orders))

	for i, order := range b.orders {
		if !candle.Contains(order.EntryPrice()) {
			remaining = append(remaining, order)

			continue
		}

		b.wallet.Unlock(order.Cost())

		if _, err := b.OpenPosition(order); err != nil {
			// the lock was just released, so this only fails if the wallet invariant is broken
			b.wallet.Lock(order.Cost())
			b.orders = append(remaining, b.orders[i:]...)

			b.log.Error("Failed to fill order",
				zap.String("order_id", order.ID),
				zap.Int("index", b.index),
				zap.Error(err),
			)

			return err
		}
	}

	b.orders = remaining

	return nil
}

// OpenPosition implements engine.Engine.
func (b *BacktestEngineV1) OpenPosition(order types.Order) (types.Position, error) {
	if err := order.Validate(); err != nil {
		return types.Position{}, err
	}

	cost := order.Cost()
	if !b.wallet.Sub(cost) {
		return types.Position{}, errors.NewInsufficientFunds(cost, b.wallet.FreeBalance())
	}

	b.lastPositionID++
	position := types.NewPositionFromOrder(order, b.lastPositionID, b.tick())

	b.positions = append(b.positions, position)
	b.events = append(b.events, types.NewPositionEvent(position))

	b.log.Debug("Position opened",
		zap.Uint64("position_id", position.ID),
		zap.String("order_id", order.ID),
		zap.String("side", string(position.Side)),
		zap.Float64("entry_price", position.EntryPrice),
		zap.Float64("quantity", position.Quantity),
		zap.Int("index", position.OpenIndex),
	)

	return position, nil
}
