package strategy

import (
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
)

const SMACrossoverName = "sma_crossover"

// MovingAverageType selects how the crossover averages are computed.
type MovingAverageType string

const (
	MovingAverageSimple      MovingAverageType = "sma"
	MovingAverageExponential MovingAverageType = "ema"
)

type SMACrossoverConfig struct {
	FastPeriod   int     `yaml:"fast_period" json:"fast_period" jsonschema:"title=Fast Period,description=Candles in the fast moving average,minimum=1,default=10" validate:"gt=0,ltfield=SlowPeriod"`
	SlowPeriod   int     `yaml:"slow_period" json:"slow_period" jsonschema:"title=Slow Period,description=Candles in the slow moving average,minimum=2,default=30" validate:"gt=1"`
	TrailPercent float64 `yaml:"trail_percent" json:"trail_percent" jsonschema:"title=Trail Percent,description=Trailing stop distance in percent,exclusiveMinimum=0,exclusiveMaximum=100,default=5" validate:"gt=0,lt=100"`
	Allocation   float64 `yaml:"allocation" json:"allocation" jsonschema:"title=Allocation,description=Fraction of the free balance spent on an entry,exclusiveMinimum=0,exclusiveMaximum=1,default=0.5" validate:"gt=0,lt=1"`
	Precision    int     `yaml:"precision" json:"precision" jsonschema:"title=Precision,description=Decimal places kept in the order quantity,minimum=0,maximum=8,default=4" validate:"gte=0,lte=8"`

	// MAType defaults to sma when empty.
	MAType MovingAverageType `yaml:"ma_type" json:"ma_type,omitempty" jsonschema:"title=Moving Average Type,description=Average used for both lines,enum=sma,enum=ema,default=sma" validate:"omitempty,oneof=sma ema"`
}

func DefaultSMACrossoverConfig() SMACrossoverConfig {
	return SMACrossoverConfig{
		FastPeriod:   10,
		SlowPeriod:   30,
		TrailPercent: 5,
		Allocation:   0.5,
		Precision:    4,
		MAType:       MovingAverageSimple,
	}
}

// SMACrossover goes long when the fast average of the close crosses above the slow one and
// leaves when it crosses back below. Open positions also carry a trailing stop.
type SMACrossover struct {
	config SMACrossoverConfig
	window *indicator.Window
}

var _ engine.Strategy = (*SMACrossover)(nil)

func NewSMACrossover(config SMACrossoverConfig) (*SMACrossover, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	// one extra candle to compare against the previous averages
	size := config.SlowPeriod + 1
	if config.MAType == MovingAverageExponential {
		// the EMA is seeded inside the window, so keep extra history to smooth the seed out
		size = 3*config.SlowPeriod + 1
	}

	return &SMACrossover{
		config: config,
		window: indicator.NewWindow(size),
	}, nil
}

func (s *SMACrossover) Name() string {
	return SMACrossoverName
}

func (s *SMACrossover) ProcessCandle(ctx engine.StrategyContext, candle types.Candle) error {
	s.window.Push(candle)

	if !s.window.Full() {
		return nil
	}

	candles := s.window.Candles()

	fast, slow, err := s.averages(candles)
	if err != nil {
		return err
	}

	prevFast, prevSlow, err := s.averages(candles[:len(candles)-1])
	if err != nil {
		return err
	}

	positions := ctx.Positions()

	switch {
	case prevFast <= prevSlow && fast > slow:
		if len(positions) > 0 || len(ctx.Orders()) > 0 {
			return nil
		}

		return s.enter(ctx, candle)
	case prevFast >= prevSlow && fast < slow:
		for _, position := range positions {
			if position.Side == types.PositionSideLong {
				ctx.ClosePosition(position.ID, candle.Close)
			}
		}
	}

	return nil
}

func (s *SMACrossover) averages(candles []types.Candle) (float64, float64, error) {
	average := indicator.SMA
	if s.config.MAType == MovingAverageExponential {
		average = indicator.EMA
	}

	fast, err := average(candles, s.config.FastPeriod)
	if err != nil {
		return 0, 0, err
	}

	slow, err := average(candles, s.config.SlowPeriod)
	if err != nil {
		return 0, 0, err
	}

	return fast, slow, nil
}

func (s *SMACrossover) enter(ctx engine.StrategyContext, candle types.Candle) error {
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

	order, err := types.NewOrderWithExit(
		types.Market(candle.Close),
		types.TrailingStop(candle.Close, s.config.TrailPercent),
		quantity,
		types.OrderSideBuy,
	)
	if err != nil {
		return err
	}

	ctx.PlaceOrder(order)

	return nil
}
