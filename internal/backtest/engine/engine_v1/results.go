package engine

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// Summary describes the latest run, marking open positions and the buy and hold
// comparison at the last close.
func (b *BacktestEngineV1) Summary(symbol, strategy, dataPath string) RunSummary {
	first := b.candles[0]
	last := b.candles[len(b.candles)-1]

	return RunSummary{
		RunID:          b.runID,
		Symbol:         symbol,
		Strategy:       strategy,
		DataPath:       dataPath,
		InitialBalance: b.wallet.InitialBalance(),
		FinalBalance:   b.wallet.Balance(),
		UnrealizedPnL:  b.TotalBalance(last.Close) - b.wallet.Balance(),
		BuyAndHoldPnL:  buyAndHold(b.wallet.InitialBalance(), first.Close, last.Close),
	}
}

// SaveResults records the events of the latest run into state and writes events.parquet and
// stats.yaml to folder.
func (b *BacktestEngineV1) SaveResults(state *BacktestState, summary RunSummary, folder string) (types.BacktestStats, error) {
	if err := state.Record(summary.RunID, b.events, b.candles); err != nil {
		return types.BacktestStats{}, err
	}

	stats, err := state.GetStats(summary)
	if err != nil {
		return types.BacktestStats{}, err
	}

	return state.Write(folder, stats)
}

func buyAndHold(balance, firstClose, lastClose float64) float64 {
	for _, v := range []float64{balance, firstClose, lastClose} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
	}

	if firstClose <= 0 {
		return 0
	}

	quantity := decimal.NewFromFloat(balance).Div(decimal.NewFromFloat(firstClose))

	return quantity.Mul(decimal.NewFromFloat(lastClose).Sub(decimal.NewFromFloat(firstClose))).Round(8).InexactFloat64()
}
