package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Candle is one OHLCV bar. Bid is only present when the data source provides it.
// The engine does not check that Low <= Open, Close <= High.
type Candle struct {
	Time   time.Time               `yaml:"time" json:"time" csv:"time"`
	Open   float64                 `yaml:"open" json:"open" csv:"open"`
	High   float64                 `yaml:"high" json:"high" csv:"high"`
	Low    float64                 `yaml:"low" json:"low" csv:"low"`
	Close  float64                 `yaml:"close" json:"close" csv:"close"`
	Volume float64                 `yaml:"volume" json:"volume" csv:"volume"`
	Bid    optional.Option[float64] `yaml:"bid" json:"bid" csv:"bid"`
}

func NewCandle(open, high, low, close, volume float64) Candle {
	return Candle{
		Time:   time.Time{},
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: volume,
		Bid:    optional.None[float64](),
	}
}

// WithBid returns a copy of the candle carrying the given bid.
func (c Candle) WithBid(bid float64) Candle {
	c.Bid = optional.Some(bid)

	return c
}

// WithTime returns a copy of the candle stamped with t.
func (c Candle) WithTime(t time.Time) Candle {
	c.Time = t

	return c
}

// Contains reports whether price lies within [Low, High].
func (c Candle) Contains(price float64) bool {
	return price >= c.Low && price <= c.High
}
