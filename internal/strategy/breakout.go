package strategy

import (
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
)

const BreakoutName = "breakout"

type BreakoutConfig struct {
	Lookback          int     `yaml:"lookback" json:"lookback" jsonschema:"title=Lookback,description=Candles forming the range to break,minimum=1,default=20" validate:"gt=0"`
	TakeProfitPercent float64 `yaml:"take_profit_percent" json:"take_profit_percent" jsonschema:"title=Take Profit Percent,description=Take profit distance from the entry in percent,exclusiveMinimum=0,exclusiveMaximum=100,default=4" validate:"gt=0,lt=100"`
	StopLossPercent   float64 `yaml:"stop_loss_percent" json:"stop_loss_percent" jsonschema:"title=Stop Loss Percent,description=Stop loss distance from the entry in percent,exclusiveMinimum=0,exclusiveMaximum=100,default=2" validate:"gt=0,lt=100"`
	Allocation        float64 `yaml:"allocation" json:"allocation" jsonschema:"title=Allocation,description=Fraction of the free balance spent on an entry,exclusiveMinimum=0,exclusiveMaximum=1,default=0.5" validate:"gt=0,lt=1"`
	Precision         int     `yaml:"precision" json:"precision" jsonschema:"title=Precision,description=Decimal places kept in the order quantity,minimum=0,maximum=8,default=4" validate:"gte=0,lte=8"`
	AllowShort        bool    `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short,description=Also sell when the close breaks below the range,default=false"`

	// ATRMultiple places the stop loss this many ATRs (over Lookback candles) away from the
	// entry instead of StopLossPercent. Zero keeps the percent stop.
	ATRMultiple float64 `yaml:"atr_multiple" json:"atr_multiple" jsonschema:"title=ATR Multiple,description=Stop loss distance in average true ranges; 0 uses stop_loss_percent,minimum=0,default=0" validate:"gte=0"`
}

func DefaultBreakoutConfig() BreakoutConfig {
	return BreakoutConfig{
		Lookback:          20,
		TakeProfitPercent: 4,
		StopLossPercent:   2,
		Allocation:        0.5,
		Precision:         4,
		AllowShort:        false,
		ATRMultiple:       0,
	}
}

// Breakout enters when the close leaves the high/low range of the previous Lookback candles.
// Every entry carries a take profit and stop loss placed around the close.
// With an ATR stop the window keeps one extra candle so every true range has a previous close.
type Breakout struct {
	config BreakoutConfig
	window *indicator.Window
}

var _ engine.Strategy = (*Breakout)(nil)

func NewBreakout(config BreakoutConfig) (*Breakout, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	size := config.Lookback
	if config.ATRMultiple > 0 {
		size++
	}

	return &Breakout{
		config: config,
		window: indicator.NewWindow(size),
	}, nil
}

func (s *Breakout) Name() string {
	return BreakoutName
}

func (s *Breakout) ProcessCandle(ctx engine.StrategyContext, candle types.Candle) error {
	// the range excludes the current candle
	defer s.window.Push(candle)

	if !s.window.Full() || len(ctx.Positions()) > 0 || len(ctx.Orders()) > 0 {
		return nil
	}

	rangeCandles := s.window.Last(s.config.Lookback)

	high, err := indicator.Highest(rangeCandles)
	if err != nil {
		return err
	}

	low, err := indicator.Lowest(rangeCandles)
	if err != nil {
		return err
	}

	switch {
	case candle.Close > high:
		return s.enter(ctx, candle, types.OrderSideBuy)
	case s.config.AllowShort && candle.Close < low:
		return s.enter(ctx, candle, types.OrderSideSell)
	}

	return nil
}

func (s *Breakout) enter(ctx engine.StrategyContext, candle types.Candle, side types.OrderSide) error {
	free, err := ctx.FreeBalance()
	if err != nil {
		return err
	}

	quantity := utils.RoundToDecimalPrecision(
		utils.CalculateOrderQuantityByPercentage(free, candle.Close, s.config.Allocation),
		s.config.Precision,
	)
	if quantity <= 0 {
		return nil
	}

	stopDistance, err := s.stopDistance(candle)
	if err != nil {
		return err
	}

	takeProfit := candle.Close * (1 + s.config.TakeProfitPercent/100)
	stopLoss := candle.Close - stopDistance

	if side == types.OrderSideSell {
		takeProfit = candle.Close * (1 - s.config.TakeProfitPercent/100)
		stopLoss = candle.Close + stopDistance
	}

	order, err := types.NewOrderWithExit(
		types.Market(candle.Close),
		types.TakeProfitAndStopLoss(takeProfit, stopLoss),
		quantity,
		side,
	)
	if err != nil {
		return err
	}

	ctx.PlaceOrder(order)

	return nil
}

// stopDistance uses the percent stop unless an ATR stop is configured and stays below the close.
func (s *Breakout) stopDistance(candle types.Candle) (float64, error) {
	percent := candle.Close * s.config.StopLossPercent / 100
	if s.config.ATRMultiple <= 0 {
		return percent, nil
	}

	atr, err := indicator.ATR(s.window.Candles(), s.config.Lookback)
	if err != nil {
		return 0, err
	}

	distance := s.config.ATRMultiple * atr
	if distance <= 0 || distance >= candle.Close {
		return percent, nil
	}

	return distance, nil
}
