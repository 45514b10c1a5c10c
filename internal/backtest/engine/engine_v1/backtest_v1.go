package engine

import (
	"context"
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/wallet"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// BacktestEngineV1 replays a candle sequence for one instrument. It is not safe for concurrent use.
type BacktestEngineV1 struct {
	candles        []types.Candle
	index          int
	orders         []types.Order
	positions      []types.Position
	events         []types.PositionEvent
	wallet         *wallet.Wallet
	tieBreak       types.TieBreakPolicy
	lastPositionID uint64
	runID          string
	log            *logger.Logger
	// callbacks of the active run, used to report closes and rejected intents.
	callbacks engine.LifecycleCallbacks
}

var _ engine.Engine = (*BacktestEngineV1)(nil)

type Option func(*BacktestEngineV1)

func WithLogger(log *logger.Logger) Option {
	return func(b *BacktestEngineV1) {
		if log != nil {
			b.log = log
		}
	}
}

func WithTieBreak(policy types.TieBreakPolicy) Option {
	return func(b *BacktestEngineV1) {
		if policy != "" {
			b.tieBreak = policy
		}
	}
}

// NewBacktest creates an engine over a copy of candles with the given starting balance.
func NewBacktest(candles []types.Candle, initialBalance float64, opts ...Option) (*BacktestEngineV1, error) {
	if len(candles) == 0 {
		return nil, errors.New(errors.ErrCodeCandleDataEmpty, "no candles to backtest")
	}

	if !(initialBalance > 0) || math.IsInf(initialBalance, 0) {
		return nil, errors.Newf(errors.ErrCodeNegZeroBalance, "initial balance must be positive (got %v)", initialBalance)
	}

	b := &BacktestEngineV1{
		candles:        slices.Clone(candles),
		index:          0,
		orders:         []types.Order{},
		positions:      []types.Position{},
		events:         []types.PositionEvent{},
		wallet:         wallet.NewWallet(initialBalance),
		tieBreak:       types.TieBreakTakeProfit,
		lastPositionID: 0,
		runID:          "",
		log:            logger.NewNopLogger(),
		callbacks:      engine.LifecycleCallbacks{},
	}

	for _, opt := range opts {
		opt(b)
	}

	b.log.Debug("Backtest engine created",
		zap.Int("candles", len(b.candles)),
		zap.Float64("initial_balance", initialBalance),
		zap.String("tie_break", string(b.tieBreak)),
	)

	return b, nil
}

// NewBacktestFromConfig validates config and creates an engine from it.
// A nil log builds a production logger at the configured level.
func NewBacktestFromConfig(candles []types.Candle, config BacktestEngineV1Config, log *logger.Logger) (*BacktestEngineV1, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		var err error

		log, err = logger.NewLoggerWithLevel(config.LogLevel)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create logger", err)
		}
	}

	return NewBacktest(candles, config.InitialBalance, WithLogger(log), WithTieBreak(config.TieBreak))
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, strategy engine.Strategy, callbacks engine.LifecycleCallbacks) (err error) {
	b.callbacks = callbacks

	defer func() {
		b.callbacks = engine.LifecycleCallbacks{}

		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(err)
		}
	}()

	if strategy == nil {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy is nil")
	}

	runID := uuid.New().String()
	b.runID = runID
	total := len(b.candles)

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, strategy.Name(), total); err != nil {
			return err
		}
	}

	b.log.Info("Backtest started",
		zap.String("run_id", runID),
		zap.String("strategy", strategy.Name()),
		zap.Int("start_index", b.index),
		zap.Int("total", total),
	)

	for b.index < total {
		if err := ctx.Err(); err != nil {
			b.log.Warn("Backtest cancelled", zap.Int("index", b.index), zap.Error(err))

			return err
		}

		if free := b.wallet.FreeBalance(); free <= 0 {
			b.log.Error("Free balance exhausted",
				zap.Int("index", b.index),
				zap.Float64("free_balance", free),
			)

			return errors.Wrapf(errors.ErrCodeInsufficientFunds,
				&errors.InsufficientFundsError{Required: 0, Available: free},
				"free balance exhausted at candle %d", b.index)
		}

		candle := b.candles[b.index]
		strategyContext := newStrategyContext(b)

		if err := strategy.ProcessCandle(strategyContext, candle); err != nil {
			b.log.Error("Strategy failed",
				zap.String("strategy", strategy.Name()),
				zap.Int("index", b.index),
				zap.Error(err),
			)

			return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed at candle %d", strategy.Name(), b.index)
		}

		b.applyIntents(strategyContext.intents)

		if err := b.ExecuteOrders(candle); err != nil {
			return err
		}

		if err := b.ExecutePositions(candle); err != nil {
			b.log.Error("Position evaluation failed", zap.Int("index", b.index), zap.Error(err))

			return err
		}

		b.index++

		if callbacks.OnTick != nil {
			if err := (*callbacks.OnTick)(b.index, total); err != nil {
				return err
			}
		}
	}

	b.log.Info("Backtest finished",
		zap.String("run_id", runID),
		zap.Float64("balance", b.wallet.Balance()),
		zap.Int("open_positions", len(b.positions)),
		zap.Int("pending_orders", len(b.orders)),
	)

	return nil
}

// Reset implements engine.Engine.
func (b *BacktestEngineV1) Reset() {
	b.index = 0
	b.orders = []types.Order{}
	b.positions = []types.Position{}
	b.events = []types.PositionEvent{}
	b.lastPositionID = 0
	b.runID = ""
	b.wallet.Reset()

	b.log.Debug("Backtest engine reset")
}

func (b *BacktestEngineV1) Balance() float64 {
	return b.wallet.Balance()
}

// FreeBalance returns the balance not reserved by pending orders.
func (b *BacktestEngineV1) FreeBalance() (float64, error) {
	free := b.wallet.FreeBalance()
	if free < 0 {
		return free, errors.Newf(errors.ErrCodeNegFreeBalance, "free balance is negative: %v", free)
	}

	return free, nil
}

// TotalBalance returns the balance plus the unrealized profit of every open position at mark.
func (b *BacktestEngineV1) TotalBalance(mark float64) float64 {
	total := b.wallet.Balance()
	for _, position := range b.positions {
		total += position.EstimateProfit(mark)
	}

	return total
}

func (b *BacktestEngineV1) Locked() float64 {
	return b.wallet.Locked()
}

func (b *BacktestEngineV1) Orders() []types.Order {
	return slices.Clone(b.orders)
}

func (b *BacktestEngineV1) Positions() []types.Position {
	return slices.Clone(b.positions)
}

func (b *BacktestEngineV1) Events() []types.PositionEvent {
	return slices.Clone(b.events)
}

// RunID returns the id of the latest run, or an empty string before the first one.
func (b *BacktestEngineV1) RunID() string {
	return b.runID
}

func (b *BacktestEngineV1) Index() int {
	return b.index
}

func (b *BacktestEngineV1) Candles() []types.Candle {
	return slices.Clone(b.candles)
}

func (b *BacktestEngineV1) CurrentCandle() (types.Candle, error) {
	if b.index >= len(b.candles) {
		return types.Candle{}, errors.Newf(errors.ErrCodeCandleNotFound, "no candle at index %d of %d", b.index, len(b.candles))
	}

	return b.candles[b.index], nil
}

func (b *BacktestEngineV1) Advance() bool {
	if b.index < len(b.candles) {
		b.index++
	}

	return b.index < len(b.candles)
}

// tick is the candle index recorded on events. Closes after the last candle belong to it.
func (b *BacktestEngineV1) tick() int {
	return min(b.index, len(b.candles)-1)
}
