package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type DataSource interface {
	// Initialize loads the candle file at path. Parquet and CSV files are supported.
	Initialize(path string) error
	// ReadAll yields the candles between start and end (both inclusive) in time order.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Candle, error) bool)
	// Count returns the number of candles between start and end.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources held by the data source.
	Close() error
}

// LoadCandles drains ds into a slice suitable for the backtest engine. An empty range is
// reported from the count without reading any candle.
func LoadCandles(ds DataSource, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Candle, error) {
	count, err := ds.Count(start, end)
	if err != nil {
		return nil, err
	}

	if count == 0 {
		return nil, errors.New(errors.ErrCodeCandleDataEmpty, "data source returned no candles")
	}

	candles := make([]types.Candle, 0, count)

	for candle, err := range ds.ReadAll(start, end) {
		if err != nil {
			return nil, err
		}

		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, errors.New(errors.ErrCodeCandleDataEmpty, "data source returned no candles")
	}

	return candles, nil
}

func inRange(t time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if s, err := start.Take(); err == nil && t.Before(s) {
		return false
	}

	if e, err := end.Take(); err == nil && t.After(e) {
		return false
	}

	return true
}
