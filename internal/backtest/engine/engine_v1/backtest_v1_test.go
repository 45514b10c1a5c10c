package engine

import (
	"context"
	stderrors "errors"
	"math"
	"path/filepath"
	"testing"

	engine_types "github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type BacktestEngineV1TestSuite struct {
	suite.Suite
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func longCandles() []types.Candle {
	return []types.Candle{
		types.NewCandle(90, 110, 80, 100, 1),
		types.NewCandle(100, 119, 90, 110, 1),
		types.NewCandle(110, 129, 100, 120, 1),
	}
}

func shortCandles() []types.Candle {
	return []types.Candle{
		types.NewCandle(150, 160, 131, 140, 1),
		types.NewCandle(140, 150, 121, 130, 1),
		types.NewCandle(130, 140, 111, 120, 1),
	}
}

func manualCandles() []types.Candle {
	return []types.Candle{
		types.NewCandle(100, 111, 99, 110, 1),
		types.NewCandle(110, 112, 100, 120, 1),
		types.NewCandle(120, 121, 100, 110, 1),
	}
}

func (suite *BacktestEngineV1TestSuite) newBacktest(candles []types.Candle, balance float64, opts ...Option) *BacktestEngineV1 {
	b, err := NewBacktest(candles, balance, opts...)
	suite.Require().NoError(err)

	return b
}

func (suite *BacktestEngineV1TestSuite) order(entry types.OrderType, quantity float64, side types.OrderSide) types.Order {
	order, err := types.NewOrder(entry, quantity, side)
	suite.Require().NoError(err)

	return order
}

func (suite *BacktestEngineV1TestSuite) orderWithExit(entry, exit types.OrderType, quantity float64, side types.OrderSide) types.Order {
	order, err := types.NewOrderWithExit(entry, exit, quantity, side)
	suite.Require().NoError(err)

	return order
}

func (suite *BacktestEngineV1TestSuite) current(b *BacktestEngineV1) types.Candle {
	candle, err := b.CurrentCandle()
	suite.Require().NoError(err)

	return candle
}

func (suite *BacktestEngineV1TestSuite) next(b *BacktestEngineV1) types.Candle {
	suite.Require().True(b.Advance())

	return suite.current(b)
}

// assertBalances checks the balance, the total balance marked at mark and the free balance.
func (suite *BacktestEngineV1TestSuite) assertBalances(b *BacktestEngineV1, mark, balance, total, free float64) {
	suite.T().Helper()

	suite.Equal(balance, b.Balance(), "balance")
	suite.Equal(total, b.TotalBalance(mark), "total balance")

	actualFree, err := b.FreeBalance()
	suite.Require().NoError(err)
	suite.Equal(free, actualFree, "free balance")
}

func (suite *BacktestEngineV1TestSuite) TestNewBacktest() {
	_, err := NewBacktest(nil, 1000)
	suite.Equal(errors.ErrCodeCandleDataEmpty, errors.GetCode(err))

	for _, balance := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewBacktest(longCandles(), balance)
		suite.Equal(errors.ErrCodeNegZeroBalance, errors.GetCode(err), "balance %v", balance)
	}

	candles := longCandles()
	b := suite.newBacktest(candles, 1000)

	candles[0].Close = 1
	suite.Equal(100.0, b.Candles()[0].Close, "engine keeps its own copy of the candles")
	suite.Equal(0, b.Index())
	suite.Empty(b.Orders())
	suite.Empty(b.Positions())
	suite.Empty(b.Events())
	suite.Equal("", b.RunID())
	suite.assertBalances(b, 100, 1000, 1000, 1000)
}

func (suite *BacktestEngineV1TestSuite) TestNewBacktestFromConfig() {
	config := EmptyConfig()
	config.InitialBalance = 500
	config.TieBreak = types.TieBreakStopLoss

	b, err := NewBacktestFromConfig(longCandles(), config, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Equal(500.0, b.Balance())
	suite.Equal(types.TieBreakStopLoss, b.tieBreak)

	_, err = NewBacktestFromConfig(longCandles(), EmptyConfig(), nil)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (suite *BacktestEngineV1TestSuite) TestPlaceAndDeleteOrder() {
	b := suite.newBacktest([]types.Candle{types.NewCandle(0, 0, 0, 110, 0)}, 1000)
	candle := suite.current(b)

	placed, err := b.PlaceOrder(suite.order(types.Market(candle.Close), 1, types.OrderSideBuy))
	suite.Require().NoError(err)
	suite.NotEmpty(placed.ID)

	suite.Len(b.Orders(), 1)
	suite.Equal(110.0, b.Locked())
	suite.assertBalances(b, candle.Close, 1000, 1000, 890)

	suite.Require().NoError(b.DeleteOrder(placed.ID))

	suite.Empty(b.Orders())
	suite.Equal(0.0, b.Locked())
	suite.assertBalances(b, candle.Close, 1000, 1000, 1000)

	err = b.DeleteOrder(placed.ID)
	suite.Equal(errors.ErrCodeOrderNotFound, errors.GetCode(err))
}

func (suite *BacktestEngineV1TestSuite) TestPlaceOrderRejections() {
	b := suite.newBacktest(longCandles(), 1000)

	_, err := b.PlaceOrder(suite.order(types.Market(100), 20, types.OrderSideBuy))
	suite.Equal(errors.ErrCodeInsufficientFunds, errors.GetCode(err))

	var fundsErr *errors.InsufficientFundsError
	suite.Require().True(errors.As(err, &fundsErr))
	suite.Equal(2000.0, fundsErr.Required)
	suite.Equal(1000.0, fundsErr.Available)

	_, err = b.PlaceOrder(types.Order{Entry: types.TrailingStop(100, 10), Quantity: 1, Side: types.OrderSideBuy})
	suite.Equal(errors.ErrCodeMismatchedOrderType, errors.GetCode(err))

	_, err = b.PlaceOrder(types.Order{Entry: types.Market(100), Quantity: 0, Side: types.OrderSideBuy})
	suite.Equal(errors.ErrCodeInvalidOrder, errors.GetCode(err))

	placed, err := b.PlaceOrder(suite.order(types.Limit(50), 1, types.OrderSideBuy))
	suite.Require().NoError(err)

	_, err = b.PlaceOrder(placed)
	suite.Equal(errors.ErrCodeInvalidOrder, errors.GetCode(err), "duplicate pending id")

	suite.Len(b.Orders(), 1)
	suite.assertBalances(b, 100, 1000, 1000, 950)
}

func (suite *BacktestEngineV1TestSuite) TestPlaceOrderKeepsTotalBalance() {
	b := suite.newBacktest(longCandles(), 1000)

	quantities := []float64{0.1, 0.3, 1.7, 2}
	for _, quantity := range quantities {
		freeBefore, err := b.FreeBalance()
		suite.Require().NoError(err)

		totalBefore := b.TotalBalance(100)
		order := suite.order(types.Limit(33.3), quantity, types.OrderSideBuy)

		_, err = b.PlaceOrder(order)
		suite.Require().NoError(err)

		freeAfter, err := b.FreeBalance()
		suite.Require().NoError(err)
		suite.InDelta(freeBefore-order.Cost(), freeAfter, 1e-9)
		suite.Equal(totalBefore, b.TotalBalance(100))
	}
}

func (suite *BacktestEngineV1TestSuite) TestOrderOutsideRangeStaysPending() {
	b := suite.newBacktest(longCandles(), 1000)
	candle := suite.current(b)

	_, err := b.PlaceOrder(suite.order(types.Limit(50), 1, types.OrderSideBuy))
	suite.Require().NoError(err)

	suite.Require().NoError(b.ExecuteOrders(candle))
	suite.Len(b.Orders(), 1)
	suite.Empty(b.Positions())
	suite.assertBalances(b, candle.Close, 1000, 1000, 950)

	// limit fills once a candle reaches it
	suite.Require().NoError(b.ExecuteOrders(types.NewCandle(60, 61, 49, 55, 1)))
	suite.Empty(b.Orders())
	suite.Require().Len(b.Positions(), 1)
	suite.Equal(50.0, b.Positions()[0].EntryPrice)
	suite.assertBalances(b, 50, 950, 950, 950)
}

func (suite *BacktestEngineV1TestSuite) TestFillMatchesOrder() {
	b := suite.newBacktest(longCandles(), 1000)
	candle := suite.current(b)

	order := suite.orderWithExit(types.Limit(95), types.TakeProfitAndStopLoss(60, 130), 2, types.OrderSideSell)
	_, err := b.PlaceOrder(order)
	suite.Require().NoError(err)
	suite.Require().NoError(b.ExecuteOrders(candle))

	suite.Require().Len(b.Positions(), 1)

	position := b.Positions()[0]
	suite.Equal(uint64(1), position.ID)
	suite.Equal(types.PositionSideShort, position.Side)
	suite.Equal(95.0, position.EntryPrice)
	suite.Equal(2.0, position.Quantity)
	suite.Equal(0, position.OpenIndex)
	suite.Equal(order.Exit, position.Exit)
	suite.Equal(810.0, b.Balance())

	events := b.Events()
	suite.Require().Len(events, 1)
	suite.False(events[0].IsClosed())
	suite.Equal(position.ID, events[0].PositionID)
}

func (suite *BacktestEngineV1TestSuite) TestLongTakeProfit() {
	b := suite.newBacktest(longCandles(), 1000)
	candle := suite.current(b)

	order := suite.orderWithExit(types.Market(candle.Close), types.TakeProfitAndStopLoss(120, 0), 1, types.OrderSideBuy)
	_, err := b.PlaceOrder(order)
	suite.Require().NoError(err)

	suite.Len(b.Orders(), 1)
	suite.Empty(b.Positions())
	suite.assertBalances(b, candle.Close, 1000, 1000, 900)

	suite.Require().NoError(b.ExecuteOrders(candle))
	suite.Empty(b.Orders())
	suite.Len(b.Positions(), 1)
	suite.assertBalances(b, candle.Close, 900, 900, 900)

	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)
	suite.assertBalances(b, candle.Close, 900, 910, 900)

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Empty(b.Positions())
	suite.assertBalances(b, candle.Close, 1020, 1020, 1020)

	events := b.Events()
	suite.Require().Len(events, 1)
	suite.Equal(types.ExitReasonTakeProfit, events[0].Reason)
	suite.Equal(2, events[0].CloseIndex.Unwrap())
	suite.Equal(120.0, events[0].ExitPrice.Unwrap())
	suite.Equal(20.0, events[0].Profit.Unwrap())
}

func (suite *BacktestEngineV1TestSuite) TestLongStopLoss() {
	b := suite.newBacktest(shortCandles(), 1000)
	candle := suite.current(b)

	order := suite.orderWithExit(types.Market(candle.Close), types.TakeProfitAndStopLoss(0, candle.Close-20), 1, types.OrderSideBuy)
	_, err := b.PlaceOrder(order)
	suite.Require().NoError(err)
	suite.assertBalances(b, candle.Close, 1000, 1000, 860)

	suite.Require().NoError(b.ExecuteOrders(candle))
	suite.assertBalances(b, candle.Close, 860, 860, 860)

	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)
	suite.assertBalances(b, candle.Close, 860, 850, 860)

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Empty(b.Positions())
	suite.assertBalances(b, candle.Close, 980, 980, 980)
	suite.Equal(types.ExitReasonStopLoss, b.Events()[0].Reason)
}

func (suite *BacktestEngineV1TestSuite) TestShortTakeProfit() {
	b := suite.newBacktest(shortCandles(), 1000)
	candle := suite.current(b)

	order := suite.orderWithExit(types.Market(candle.Close), types.TakeProfitAndStopLoss(candle.Close-20, 0), 1, types.OrderSideSell)
	_, err := b.PlaceOrder(order)
	suite.Require().NoError(err)
	suite.assertBalances(b, candle.Close, 1000, 1000, 860)

	suite.Require().NoError(b.ExecuteOrders(candle))
	suite.assertBalances(b, candle.Close, 860, 860, 860)

	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)
	suite.assertBalances(b, candle.Close, 860, 870, 860)

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Empty(b.Positions())
	suite.assertBalances(b, candle.Close, 1020, 1020, 1020)
	suite.Equal(types.ExitReasonTakeProfit, b.Events()[0].Reason)
}

func (suite *BacktestEngineV1TestSuite) TestShortStopLoss() {
	b := suite.newBacktest(longCandles(), 1000)
	candle := suite.current(b)

	order := suite.orderWithExit(types.Market(candle.Close), types.TakeProfitAndStopLoss(0, 120), 1, types.OrderSideSell)
	_, err := b.PlaceOrder(order)
	suite.Require().NoError(err)
	suite.assertBalances(b, candle.Close, 1000, 1000, 900)

	suite.Require().NoError(b.ExecuteOrders(candle))
	suite.assertBalances(b, candle.Close, 900, 900, 900)

	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)
	suite.assertBalances(b, candle.Close, 900, 890, 900)

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Empty(b.Positions())
	suite.assertBalances(b, candle.Close, 980, 980, 980)

	events := b.Events()
	suite.Equal(types.ExitReasonStopLoss, events[0].Reason)
	suite.Equal(-20.0, events[0].Profit.Unwrap())
}

func (suite *BacktestEngineV1TestSuite) TestTrailingStopProfit() {
	// enter at 100 with a 10% trail; the high of 140 lifts the stop to 126
	b := suite.newBacktest([]types.Candle{
		types.NewCandle(99, 101, 98, 100, 1),
		types.NewCandle(100, 110, 100, 108, 1),
		types.NewCandle(108, 140, 127, 135, 1),
		types.NewCandle(135, 139.9, 126, 130, 1),
	}, 1000)
	candle := suite.current(b)

	order := suite.orderWithExit(types.Market(candle.Close), types.TrailingStop(candle.Close, 10), 1, types.OrderSideBuy)
	_, err := b.PlaceOrder(order)
	suite.Require().NoError(err)
	suite.Require().NoError(b.ExecuteOrders(candle))
	suite.assertBalances(b, candle.Close, 900, 900, 900)

	thresholds := []float64{}
	record := func() {
		threshold, ok := b.Positions()[0].TrailingThreshold()
		suite.Require().True(ok)

		thresholds = append(thresholds, threshold)
	}

	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)
	record()

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)
	suite.assertBalances(b, candle.Close, 900, 908, 900)
	record()

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)
	suite.assertBalances(b, candle.Close, 900, 935, 900)
	record()

	suite.InDelta(126.0, thresholds[len(thresholds)-1], 1e-9)

	for i := 1; i < len(thresholds); i++ {
		suite.GreaterOrEqual(thresholds[i], thresholds[i-1], "trailing stop must not loosen")
	}

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Empty(b.Positions())
	suite.assertBalances(b, candle.Close, 1026, 1026, 1026)

	events := b.Events()
	suite.Equal(types.ExitReasonTrailingStop, events[0].Reason)
	suite.Equal(3, events[0].CloseIndex.Unwrap())
}

func (suite *BacktestEngineV1TestSuite) TestTrailingStopLoss() {
	b := suite.newBacktest([]types.Candle{
		types.NewCandle(99, 100, 98, 100, 1),
		types.NewCandle(100, 100, 90, 100, 1),
	}, 1000)
	candle := suite.current(b)

	order := suite.orderWithExit(types.Market(candle.Close), types.TrailingStop(candle.Close, 10), 1, types.OrderSideBuy)
	_, err := b.PlaceOrder(order)
	suite.Require().NoError(err)
	suite.Require().NoError(b.ExecuteOrders(candle))
	suite.assertBalances(b, candle.Close, 900, 900, 900)

	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Len(b.Positions(), 1)

	candle = suite.next(b)
	suite.Require().NoError(b.ExecutePositions(candle))
	suite.Empty(b.Positions())
	suite.assertBalances(b, candle.Close, 990, 990, 990)
}

func (suite *BacktestEngineV1TestSuite) TestTieBreakPolicy() {
	tests := []struct {
		name     string
		opts     []Option
		balance  float64
		reason   types.ExitReason
		exitedAt float64
	}{
		{name: "take profit wins by default", opts: nil, balance: 1010, reason: types.ExitReasonTakeProfit, exitedAt: 110},
		{name: "stop loss policy", opts: []Option{WithTieBreak(types.TieBreakStopLoss)}, balance: 990, reason: types.ExitReasonStopLoss, exitedAt: 90},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			b := suite.newBacktest([]types.Candle{types.NewCandle(100, 100, 100, 100, 1)}, 1000, tt.opts...)

			_, err := b.OpenPosition(suite.orderWithExit(types.Market(100), types.TakeProfitAndStopLoss(110, 90), 1, types.OrderSideBuy))
			suite.Require().NoError(err)

			suite.Require().NoError(b.ExecutePositions(types.NewCandle(100, 115, 85, 100, 1)))
			suite.Empty(b.Positions())
			suite.Equal(tt.balance, b.Balance())
			suite.Equal(tt.reason, b.Events()[0].Reason)
			suite.Equal(tt.exitedAt, b.Events()[0].ExitPrice.Unwrap())
		})
	}
}

func (suite *BacktestEngineV1TestSuite) TestManualClose() {
	tests := []struct {
		name    string
		side    types.OrderSide
		openAt  int
		balance float64
		profit  float64
	}{
		{name: "long", side: types.OrderSideBuy, openAt: 0, balance: 1010, profit: 10},
		{name: "short", side: types.OrderSideSell, openAt: 1, balance: 1010, profit: 10},
		{name: "failed long", side: types.OrderSideBuy, openAt: 1, balance: 990, profit: -10},
		{name: "failed short", side: types.OrderSideSell, openAt: 0, balance: 990, profit: -10},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			b := suite.newBacktest(manualCandles(), 1000)

			candle := suite.current(b)
			for range tt.openAt {
				candle = suite.next(b)
			}

			position, err := b.OpenPosition(suite.order(types.Market(candle.Close), 1, tt.side))
			suite.Require().NoError(err)
			suite.Equal(1000-candle.Close, b.Balance())
			suite.Equal(tt.openAt, position.OpenIndex)

			candle = suite.next(b)

			profit, err := b.ClosePosition(position.ID, candle.Close)
			suite.Require().NoError(err)
			suite.Equal(tt.profit, profit)
			suite.Empty(b.Positions())
			suite.Equal(tt.balance, b.Balance())

			event := b.Events()[0]
			suite.Equal(types.ExitReasonManual, event.Reason)

			holding, ok := event.HoldingTicks()
			suite.True(ok)
			suite.Equal(1, holding)
		})
	}
}

func (suite *BacktestEngineV1TestSuite) TestClosePositionRejections() {
	b := suite.newBacktest(manualCandles(), 1000)

	_, err := b.ClosePosition(42, 100)
	suite.Equal(errors.ErrCodePositionNotFound, errors.GetCode(err))

	position, err := b.OpenPosition(suite.order(types.Market(110), 1, types.OrderSideBuy))
	suite.Require().NoError(err)

	for _, price := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err = b.ClosePosition(position.ID, price)
		suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err), "price %v", price)
	}

	suite.Len(b.Positions(), 1)
	suite.Equal(890.0, b.Balance())
}

func (suite *BacktestEngineV1TestSuite) TestShortLossBeyondCost() {
	b := suite.newBacktest(manualCandles(), 200)

	position, err := b.OpenPosition(suite.order(types.Market(100), 1, types.OrderSideSell))
	suite.Require().NoError(err)

	// the 150 loss exceeds the 100 cost; the remainder comes out of the free balance
	profit, err := b.ClosePosition(position.ID, 250)
	suite.Require().NoError(err)
	suite.Equal(-150.0, profit)
	suite.Equal(50.0, b.Balance())

	position, err = b.OpenPosition(suite.order(types.Market(10), 1, types.OrderSideSell))
	suite.Require().NoError(err)

	_, err = b.ClosePosition(position.ID, 100)
	suite.Equal(errors.ErrCodeNegFreeBalance, errors.GetCode(err))
	suite.Len(b.Positions(), 1, "a failed close leaves the position open")
	suite.Equal(40.0, b.Balance())
}

func (suite *BacktestEngineV1TestSuite) TestCloseAllPositions() {
	b := suite.newBacktest(manualCandles(), 1000)

	first, err := b.OpenPosition(suite.order(types.Market(110), 1, types.OrderSideBuy))
	suite.Require().NoError(err)

	second, err := b.OpenPosition(suite.order(types.Market(100), 2, types.OrderSideSell))
	suite.Require().NoError(err)

	suite.Equal(uint64(1), first.ID)
	suite.Equal(uint64(2), second.ID, "ids stay unique within one tick")

	profit, err := b.CloseAllPositions(105)
	suite.Require().NoError(err)
	suite.Equal(-5.0+-10.0, profit)
	suite.Empty(b.Positions())
	suite.Equal(985.0, b.Balance())

	profit, err = b.CloseAllPositions(105)
	suite.Require().NoError(err)
	suite.Equal(0.0, profit)
}

func (suite *BacktestEngineV1TestSuite) TestPositionWithoutExitRuleStaysOpen() {
	b := suite.newBacktest(longCandles(), 1000)

	_, err := b.OpenPosition(suite.order(types.Market(100), 1, types.OrderSideBuy))
	suite.Require().NoError(err)

	for _, candle := range b.Candles() {
		suite.Require().NoError(b.ExecutePositions(candle))
	}

	suite.Len(b.Positions(), 1)
}

func (suite *BacktestEngineV1TestSuite) TestCurrentCandleAndAdvance() {
	b := suite.newBacktest(longCandles(), 1000)

	suite.True(b.Advance())
	suite.True(b.Advance())
	suite.False(b.Advance())
	suite.False(b.Advance())
	suite.Equal(3, b.Index())

	_, err := b.CurrentCandle()
	suite.Equal(errors.ErrCodeCandleNotFound, errors.GetCode(err))
}

func (suite *BacktestEngineV1TestSuite) TestRunProcessesEveryCandle() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	candles := longCandles()
	b := suite.newBacktest(candles, 1000)

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()

	seen := []types.Candle{}
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).DoAndReturn(func(sc engine_types.StrategyContext, candle types.Candle) error {
		suite.Equal(len(seen), sc.Index())
		seen = append(seen, candle)

		return nil
	}).Times(len(candles))

	var (
		startedRun   string
		startedTotal int
		ticks        []int
		endErr       = stderrors.New("not called")
	)

	onRunStart := engine_types.OnRunStartCallback(func(runID string, strategyName string, totalCandles int) error {
		startedRun = runID
		startedTotal = totalCandles

		suite.Equal("mock", strategyName)

		return nil
	})
	onTick := engine_types.OnTickCallback(func(current int, total int) error {
		ticks = append(ticks, current)

		suite.Equal(len(candles), total)

		return nil
	})
	onRunEnd := engine_types.OnRunEndCallback(func(err error) {
		endErr = err
	})

	err := b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{
		OnRunStart: &onRunStart,
		OnTick:     &onTick,
		OnRunEnd:   &onRunEnd,
	})
	suite.Require().NoError(err)

	suite.Equal(candles, seen)
	suite.Equal(len(candles), startedTotal)
	suite.NotEmpty(startedRun)
	suite.Equal(startedRun, b.RunID())
	suite.Equal([]int{1, 2, 3}, ticks)
	suite.NoError(endErr)
	suite.Equal(len(candles), b.Index())
}

func (suite *BacktestEngineV1TestSuite) TestRunAppliesIntents() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	b := suite.newBacktest(longCandles(), 1000)

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).DoAndReturn(func(sc engine_types.StrategyContext, candle types.Candle) error {
		if sc.Index() != 0 {
			return nil
		}

		order := suite.orderWithExit(types.Market(candle.Close), types.TakeProfitAndStopLoss(120, 0), 1, types.OrderSideBuy)
		id := sc.PlaceOrder(order)
		suite.NotEmpty(id)

		// queued intents are not visible until the strategy returns
		suite.Empty(sc.Orders())

		free, err := sc.FreeBalance()
		suite.Require().NoError(err)
		suite.Equal(1000.0, free)

		return nil
	}).Times(3)

	closed := []types.PositionEvent{}
	onPositionClosed := engine_types.OnPositionClosedCallback(func(event types.PositionEvent) {
		closed = append(closed, event)
	})

	err := b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{OnPositionClosed: &onPositionClosed})
	suite.Require().NoError(err)

	suite.Empty(b.Orders())
	suite.Empty(b.Positions())
	suite.Equal(1020.0, b.Balance())

	suite.Require().Len(closed, 1)
	suite.Equal(types.ExitReasonTakeProfit, closed[0].Reason)
	suite.Equal(0, closed[0].OpenIndex)
	suite.Equal(2, closed[0].CloseIndex.Unwrap())
	suite.Equal(b.Events(), closed)
}

func (suite *BacktestEngineV1TestSuite) TestRunCancelAndRejectIntents() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	b := suite.newBacktest(longCandles(), 1000)

	var pendingID string

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).DoAndReturn(func(sc engine_types.StrategyContext, _ types.Candle) error {
		switch sc.Index() {
		case 0:
			pendingID = sc.PlaceOrder(suite.order(types.Limit(50), 1, types.OrderSideBuy))
			sc.PlaceOrder(suite.order(types.Market(100), 20, types.OrderSideBuy))
		case 1:
			suite.Len(sc.Orders(), 1)
			sc.CancelOrder(pendingID)
			sc.ClosePosition(99, 100)
		case 2:
			sc.CancelOrder(pendingID)
		}

		return nil
	}).Times(3)

	type rejection struct {
		kind engine_types.IntentKind
		code errors.ErrorCode
	}

	rejections := []rejection{}
	onIntentRejected := engine_types.OnIntentRejectedCallback(func(intent engine_types.Intent, err error) {
		rejections = append(rejections, rejection{kind: intent.Kind, code: errors.GetCode(err)})
	})

	err := b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{OnIntentRejected: &onIntentRejected})
	suite.Require().NoError(err)

	suite.Equal([]rejection{
		{kind: engine_types.IntentPlaceOrder, code: errors.ErrCodeInsufficientFunds},
		{kind: engine_types.IntentClosePosition, code: errors.ErrCodePositionNotFound},
		{kind: engine_types.IntentCancelOrder, code: errors.ErrCodeOrderNotFound},
	}, rejections)

	suite.Empty(b.Orders())
	suite.assertBalances(b, 100, 1000, 1000, 1000)
}

func (suite *BacktestEngineV1TestSuite) TestRunCloseAllIntent() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	b := suite.newBacktest(manualCandles(), 1000)

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).DoAndReturn(func(sc engine_types.StrategyContext, candle types.Candle) error {
		switch sc.Index() {
		case 0:
			sc.PlaceOrder(suite.order(types.Market(candle.Close), 1, types.OrderSideBuy))
		case 1:
			suite.Require().Len(sc.Positions(), 1)
			suite.Equal(900.0, sc.TotalBalance(candle.Close))
			sc.CloseAllPositions(candle.Close)
		}

		return nil
	}).Times(3)

	suite.Require().NoError(b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{}))

	suite.Empty(b.Positions())
	suite.Equal(1010.0, b.Balance())
	suite.Equal(1, b.Events()[0].CloseIndex.Unwrap())
}

func (suite *BacktestEngineV1TestSuite) TestRunStrategyError() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	b := suite.newBacktest(longCandles(), 1000)
	failure := stderrors.New("indicator not ready")

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).Return(nil)
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).Return(failure)

	var endErr error

	onRunEnd := engine_types.OnRunEndCallback(func(err error) {
		endErr = err
	})

	err := b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{OnRunEnd: &onRunEnd})
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeStrategyRuntimeError, errors.GetCode(err))
	suite.ErrorIs(err, failure)
	suite.Equal(err, endErr)
	suite.Equal(1, b.Index())
}

func (suite *BacktestEngineV1TestSuite) TestRunStopsWhenFreeBalanceIsExhausted() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	b := suite.newBacktest(longCandles(), 1000)

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).DoAndReturn(func(sc engine_types.StrategyContext, _ types.Candle) error {
		// reserves the whole balance on an order that never fills
		sc.PlaceOrder(suite.order(types.Limit(50), 20, types.OrderSideBuy))

		return nil
	}).Times(1)

	err := b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeInsufficientFunds, errors.GetCode(err))
	suite.True(errors.IsInsufficientFunds(err))
	suite.Equal(1, b.Index())
}

func (suite *BacktestEngineV1TestSuite) TestRunStopsWhenShortLossExceedsFreeBalance() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	candles := []types.Candle{
		types.NewCandle(100, 110, 90, 100, 1),
		// gaps through the stop loss at 300
		types.NewCandle(100, 400, 100, 350, 1),
		types.NewCandle(350, 360, 340, 350, 1),
	}
	b := suite.newBacktest(candles, 150)

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).DoAndReturn(func(sc engine_types.StrategyContext, candle types.Candle) error {
		if sc.Index() == 0 {
			sc.PlaceOrder(suite.orderWithExit(types.Market(100), types.TakeProfitAndStopLoss(50, 300), 1, types.OrderSideSell))
		}

		return nil
	}).Times(2)

	var endErr error

	onRunEnd := engine_types.OnRunEndCallback(func(err error) {
		endErr = err
	})

	err := b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{OnRunEnd: &onRunEnd})
	suite.Require().Error(err)
	suite.Equal(errors.ErrCodeNegFreeBalance, errors.GetCode(err))
	suite.Equal(err, endErr)

	// the run stops inside the second tick: the 200 loss needs 100 beyond the cost, the free balance holds 50
	suite.Equal(1, b.Index())
	suite.Equal(50.0, b.Balance())
	suite.Require().Len(b.Positions(), 1, "the triggered position stays open")

	events := b.Events()
	suite.Require().Len(events, 1)
	suite.False(events[0].IsClosed())
}

func (suite *BacktestEngineV1TestSuite) TestRunHonoursContext() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	b := suite.newBacktest(longCandles(), 1000)
	ctx, cancel := context.WithCancel(context.Background())

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).DoAndReturn(func(_ engine_types.StrategyContext, _ types.Candle) error {
		cancel()

		return nil
	}).Times(1)

	err := b.Run(ctx, strategy, engine_types.LifecycleCallbacks{})
	suite.ErrorIs(err, context.Canceled)
	suite.Equal(1, b.Index())
}

func (suite *BacktestEngineV1TestSuite) TestRunCallbackErrors() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	failure := stderrors.New("stop")

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	b := suite.newBacktest(longCandles(), 1000)

	onRunStart := engine_types.OnRunStartCallback(func(string, string, int) error { return failure })
	err := b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{OnRunStart: &onRunStart})
	suite.ErrorIs(err, failure)
	suite.Equal(0, b.Index())

	onTick := engine_types.OnTickCallback(func(int, int) error { return failure })
	err = b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{OnTick: &onTick})
	suite.ErrorIs(err, failure)
	suite.Equal(1, b.Index())

	err = b.Run(context.Background(), nil, engine_types.LifecycleCallbacks{})
	suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (suite *BacktestEngineV1TestSuite) TestResetRestoresConstructionState() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	b := suite.newBacktest(longCandles(), 1000)

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).DoAndReturn(func(sc engine_types.StrategyContext, candle types.Candle) error {
		if sc.Index() == 0 {
			sc.PlaceOrder(suite.orderWithExit(types.Market(candle.Close), types.TakeProfitAndStopLoss(120, 0), 1, types.OrderSideBuy))
			sc.PlaceOrder(suite.order(types.Limit(10), 1, types.OrderSideBuy))
		}

		return nil
	}).AnyTimes()

	suite.Require().NoError(b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{}))

	firstEvents := b.Events()
	firstBalance := b.Balance()
	suite.Equal(1020.0, firstBalance)
	suite.Len(b.Orders(), 1)

	b.Reset()

	suite.Equal(0, b.Index())
	suite.Empty(b.Orders())
	suite.Empty(b.Positions())
	suite.Empty(b.Events())
	suite.Equal("", b.RunID())
	suite.Equal(0.0, b.Locked())
	suite.assertBalances(b, 100, 1000, 1000, 1000)

	// the replay is identical, including position ids
	suite.Require().NoError(b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{}))
	suite.Equal(firstBalance, b.Balance())
	suite.Equal(firstEvents, b.Events())
}

func (suite *BacktestEngineV1TestSuite) TestSaveResults() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	b := suite.newBacktest(longCandles(), 1000)

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().ProcessCandle(gomock.Any(), gomock.Any()).DoAndReturn(func(sc engine_types.StrategyContext, candle types.Candle) error {
		switch sc.Index() {
		case 0:
			sc.PlaceOrder(suite.orderWithExit(types.Market(candle.Close), types.TakeProfitAndStopLoss(120, 0), 1, types.OrderSideBuy))
		case 1:
			sc.PlaceOrder(suite.order(types.Market(candle.Close), 2, types.OrderSideBuy))
		}

		return nil
	}).Times(3)

	suite.Require().NoError(b.Run(context.Background(), strategy, engine_types.LifecycleCallbacks{}))

	summary := b.Summary("SPY", "mock", "data.parquet")
	suite.Equal(b.RunID(), summary.RunID)
	suite.Equal(1000.0, summary.InitialBalance)
	suite.Equal(800.0, summary.FinalBalance)
	suite.Equal(20.0, summary.UnrealizedPnL, "open long of 2 from 110 marked at 120")
	suite.InDelta(200.0, summary.BuyAndHoldPnL, 1e-9)

	state, err := NewBacktestState(logger.NewNopLogger())
	suite.Require().NoError(err)

	defer state.Close()

	suite.Require().NoError(state.Initialize())

	folder := filepath.Join(suite.T().TempDir(), ResultFolder("results", "mock", "data.parquet", EmptyConfig()))

	stats, err := b.SaveResults(state, summary, folder)
	suite.Require().NoError(err)

	suite.Equal(2, stats.TradeResult.NumberOfPositions)
	suite.Equal(1, stats.TradeResult.NumberOfClosedPositions)
	suite.Equal(1.0, stats.TradeResult.WinRate)
	suite.Equal(20.0, stats.TradePnl.RealizedPnL)
	suite.Equal(40.0, stats.TradePnl.TotalPnL)
	suite.FileExists(stats.EventsFilePath)
	suite.FileExists(filepath.Join(folder, "stats.yaml"))
}

func TestBuyAndHold(t *testing.T) {
	tests := []struct {
		name     string
		balance  float64
		first    float64
		last     float64
		expected float64
	}{
		{name: "gain", balance: 1000, first: 100, last: 120, expected: 200},
		{name: "loss", balance: 1000, first: 100, last: 90, expected: -100},
		{name: "zero first close", balance: 1000, first: 0, last: 90, expected: 0},
		{name: "nan", balance: 1000, first: math.NaN(), last: 90, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buyAndHold(tt.balance, tt.first, tt.last); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("buyAndHold(%v, %v, %v) = %v, want %v", tt.balance, tt.first, tt.last, got, tt.expected)
			}
		})
	}
}
