package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SMA is the simple moving average of the close over the last period candles.
func SMA(candles []types.Candle, period int) (float64, error) {
	if err := checkPeriod(candles, period); err != nil {
		return 0, err
	}

	return calculateSimpleMovingAverage(candles[len(candles)-period:]), nil
}

// EMA is the exponential moving average of the close, seeded with the SMA of the first period
// candles and smoothed with alpha = 2 / (period + 1).
func EMA(candles []types.Candle, period int) (float64, error) {
	if err := checkPeriod(candles, period); err != nil {
		return 0, err
	}

	return calculateExponentialMovingAverage(candles, period), nil
}

func checkPeriod(candles []types.Candle, period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "period must be a positive integer, got %d", period)
	}

	if len(candles) < period {
		return errors.Newf(errors.ErrCodeIndicatorNotReady, "need %d candles, have %d", period, len(candles))
	}

	return nil
}

func calculateSimpleMovingAverage(candles []types.Candle) float64 {
	sum := 0.0
	for _, c := range candles {
		sum += c.Close
	}

	return sum / float64(len(candles))
}

func calculateExponentialMovingAverage(candles []types.Candle, period int) float64 {
	ema := calculateSimpleMovingAverage(candles[:period])
	alpha := 2.0 / float64(period+1)

	for _, c := range candles[period:] {
		ema = c.Close*alpha + ema*(1-alpha)
	}

	return ema
}
