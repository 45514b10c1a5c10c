package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Highest returns the highest high of the given candles.
func Highest(candles []types.Candle) (float64, error) {
	if len(candles) == 0 {
		return 0, errors.New(errors.ErrCodeIndicatorNotReady, "no candles")
	}

	highest := math.Inf(-1)
	for _, c := range candles {
		highest = math.Max(highest, c.High)
	}

	return highest, nil
}

// Lowest returns the lowest low of the given candles.
func Lowest(candles []types.Candle) (float64, error) {
	if len(candles) == 0 {
		return 0, errors.New(errors.ErrCodeIndicatorNotReady, "no candles")
	}

	lowest := math.Inf(1)
	for _, c := range candles {
		lowest = math.Min(lowest, c.Low)
	}

	return lowest, nil
}

// TrueRange of current given the close of the previous candle.
func TrueRange(current types.Candle, previousClose float64) float64 {
	return math.Max(
		current.High-current.Low,
		math.Max(math.Abs(current.High-previousClose), math.Abs(current.Low-previousClose)),
	)
}

// ATR is the average true range over the last period candles. It needs period+1 candles so
// every true range has a previous close.
func ATR(candles []types.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	if err := checkPeriod(candles, period+1); err != nil {
		return 0, err
	}

	recent := candles[len(candles)-period-1:]
	sum := 0.0

	for i := 1; i < len(recent); i++ {
		sum += TrueRange(recent[i], recent[i-1].Close)
	}

	return sum / float64(period), nil
}
