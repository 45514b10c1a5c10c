package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// CandleGenerator produces synthetic candles for tests and benchmarks.
type CandleGenerator struct {
	rng *rand.Rand
}

// NewCandleGenerator creates a generator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewCandleGenerator(seed int64) *CandleGenerator {
	return &CandleGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how candles are generated.
type GeneratorConfig struct {
	// StartTime is the time of the first candle
	StartTime time.Time
	// Interval is the duration between candles
	Interval time.Duration
	// Count is the number of candles to generate
	Count int
	// InitialPrice is the open of the first candle
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per candle)
	Volatility float64
	// Trend is the total drift over the series (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per candle
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
	// BidSpread sets the bid to close*(1-BidSpread). Zero leaves the bid unset.
	BidSpread float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002, // 0.2% per candle
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
		BidSpread:      0,
	}
}

// Generate creates candles following a geometric Brownian motion. Every candle opens at the
// previous close and satisfies low <= min(open, close) <= max(open, close) <= high.
func (g *CandleGenerator) Generate(config GeneratorConfig) []types.Candle {
	candles := make([]types.Candle, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := range config.Count {
		open := currentPrice

		// Box-Muller transform for a normal sample
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + priceChange + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension
		low := math.Min(open, closePrice) - lowExtension

		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		candle := types.NewCandle(
			roundToDecimals(open, 4),
			roundToDecimals(high, 4),
			roundToDecimals(low, 4),
			roundToDecimals(closePrice, 4),
			roundToDecimals(volume, 2),
		).WithTime(currentTime)

		if config.BidSpread > 0 {
			candle = candle.WithBid(roundToDecimals(closePrice*(1-config.BidSpread), 4))
		}

		candles[i] = candle

		// the next candle opens at the rounded close
		currentPrice = candle.Close
		currentTime = currentTime.Add(config.Interval)
	}

	return candles
}

// Generate10K generates 10,000 candles with default settings for benchmarking.
func Generate10K() []types.Candle {
	gen := NewCandleGenerator(42)
	config := DefaultConfig()
	config.Count = 10000

	return gen.Generate(config)
}

// FromCloses builds flat candles (open = high = low = close) from a close series, one minute
// apart. Useful for driving indicator based strategies with exact values.
func FromCloses(closes ...float64) []types.Candle {
	start := DefaultConfig().StartTime
	candles := make([]types.Candle, 0, len(closes))

	for i, c := range closes {
		candles = append(candles, types.NewCandle(c, c, c, c, 1).WithTime(start.Add(time.Duration(i)*time.Minute)))
	}

	return candles
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
