package engine

import (
	"math"
	"slices"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// ExecutePositions implements engine.Engine.
func (b *BacktestEngineV1) ExecutePositions(candle types.Candle) error {
	for i := 0; i < len(b.positions); {
		position := &b.positions[i]

		exitPrice, reason, ok := position.Evaluate(candle, b.tieBreak)
		if !ok {
			i++

			continue
		}

		// closing removes index i, so the next position slides into it
		if _, err := b.closePosition(position.ID, exitPrice, reason); err != nil {
			return err
		}
	}

	return nil
}

// ClosePosition implements engine.Engine.
func (b *BacktestEngineV1) ClosePosition(positionID uint64, exitPrice float64) (float64, error) {
	if !(exitPrice > 0) || math.IsInf(exitPrice, 0) {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "exit price must be positive (got %v)", exitPrice)
	}

	return b.closePosition(positionID, exitPrice, types.ExitReasonManual)
}

// CloseAllPositions implements engine.Engine.
// Positions are closed in opening order; the first failure stops the sweep.
func (b *BacktestEngineV1) CloseAllPositions(exitPrice float64) (float64, error) {
	ids := make([]uint64, 0, len(b.positions))
	for _, position := range b.positions {
		ids = append(ids, position.ID)
	}

	total := 0.0

	for _, id := range ids {
		profit, err := b.ClosePosition(id, exitPrice)
		if err != nil {
			return total, err
		}

		total += profit
	}

	return total, nil
}

func (b *BacktestEngineV1) closePosition(positionID uint64, exitPrice float64, reason types.ExitReason) (float64, error) {
	idx := slices.IndexFunc(b.positions, func(p types.Position) bool { return p.ID == positionID })
	if idx < 0 {
		return 0, errors.Newf(errors.ErrCodePositionNotFound, "position %d not found", positionID)
	}

	position := b.positions[idx]
	profit := position.Profit(exitPrice)

	proceeds := position.Proceeds(exitPrice)
	if proceeds >= 0 {
		b.wallet.Add(proceeds)
	} else if !b.wallet.Sub(-proceeds) {
		return 0, errors.Newf(errors.ErrCodeNegFreeBalance,
			"closing position %d at %v needs %v more than the free balance %v", positionID, exitPrice, -proceeds, b.wallet.FreeBalance())
	}

	b.positions = slices.Delete(b.positions, idx, idx+1)

	eventIdx := slices.IndexFunc(b.events, func(e types.PositionEvent) bool { return e.PositionID == positionID })
	if eventIdx >= 0 {
		b.events[eventIdx].Close(b.tick(), exitPrice, profit, reason)

		if b.callbacks.OnPositionClosed != nil {
			(*b.callbacks.OnPositionClosed)(b.events[eventIdx])
		}
	}

	b.log.Debug("Position closed",
		zap.Uint64("position_id", positionID),
		zap.String("reason", string(reason)),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("profit", profit),
		zap.Float64("balance", b.wallet.Balance()),
	)

	return profit, nil
}
