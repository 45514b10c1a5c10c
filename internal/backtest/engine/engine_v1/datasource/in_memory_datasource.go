package datasource

import (
	"slices"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// InMemoryDataSource serves a fixed candle slice. Candles without a timestamp are only
// returned when no time bound is given.
type InMemoryDataSource struct {
	candles []types.Candle
}

var _ DataSource = (*InMemoryDataSource)(nil)

func NewInMemoryDataSource(candles []types.Candle) *InMemoryDataSource {
	return &InMemoryDataSource{candles: slices.Clone(candles)}
}

// Initialize implements DataSource. The path is ignored.
func (m *InMemoryDataSource) Initialize(_ string) error {
	return nil
}

func (m *InMemoryDataSource) matches(candle types.Candle, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsNone() && end.IsNone() {
		return true
	}

	return !candle.Time.IsZero() && inRange(candle.Time, start, end)
}

// ReadAll implements DataSource.
func (m *InMemoryDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Candle, error) bool) {
	return func(yield func(types.Candle, error) bool) {
		for _, candle := range m.candles {
			if !m.matches(candle, start, end) {
				continue
			}

			if !yield(candle, nil) {
				return
			}
		}
	}
}

// Count implements DataSource.
func (m *InMemoryDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, candle := range m.candles {
		if m.matches(candle, start, end) {
			count++
		}
	}

	return count, nil
}

// Close implements DataSource.
func (m *InMemoryDataSource) Close() error {
	return nil
}
