package types

import (
	"os"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

type TradeHoldingTicks struct {
	// Minimum number of ticks a closed position was held
	Min int `yaml:"min"`
	// Maximum number of ticks a closed position was held
	Max int `yaml:"max"`
	// Average number of ticks a closed position was held
	Avg float64 `yaml:"avg"`
}

type TradePnl struct {
	// Realized PnL. Sum of the profit of all closed positions.
	RealizedPnL float64 `yaml:"realized_pnl"`
	// Unrealized PnL of the positions still open, marked at the last close.
	UnrealizedPnL float64 `yaml:"unrealized_pnl"`
	// Total PnL. RealizedPnL plus UnrealizedPnL.
	TotalPnL float64 `yaml:"total_pnl"`
	// Maximum loss. Minimum realized profit of a single position.
	MaximumLoss float64 `yaml:"maximum_loss"`
	// Maximum profit. Maximum realized profit of a single position.
	MaximumProfit float64 `yaml:"maximum_profit"`
}

type TradeResult struct {
	// Count of all positions, open or closed.
	NumberOfPositions int `yaml:"number_of_positions"`
	// Count of closed positions.
	NumberOfClosedPositions int `yaml:"number_of_closed_positions"`
	// Count of closed positions with positive profit.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of closed positions with negative profit.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades"`
	// Winning trades over closed positions.
	WinRate float64 `yaml:"win_rate"`
	// Closed positions per exit reason.
	ExitReasons map[ExitReason]int `yaml:"exit_reasons"`
}

type BacktestStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Symbol of the instrument.
	Symbol string `yaml:"symbol" json:"symbol"`
	// Strategy is the name of the strategy that produced the run.
	Strategy string `yaml:"strategy" json:"strategy"`
	// InitialBalance is the wallet balance at construction.
	InitialBalance float64 `yaml:"initial_balance" json:"initial_balance"`
	// FinalBalance is the wallet balance after the run.
	FinalBalance float64 `yaml:"final_balance" json:"final_balance"`
	// Result of all positions.
	TradeResult TradeResult `yaml:"trade_result" json:"trade_result"`
	// Holding time of closed positions.
	TradeHoldingTicks TradeHoldingTicks `yaml:"trade_holding_ticks" json:"trade_holding_ticks"`
	// PnL of all positions.
	TradePnl TradePnl `yaml:"trade_pnl" json:"trade_pnl"`
	// Buy and hold PnL of the initial balance over the candle range.
	BuyAndHoldPnl float64 `yaml:"buy_and_hold_pnl" json:"buy_and_hold_pnl"`
	// EventsFilePath is the path to the position events parquet file.
	EventsFilePath string `yaml:"events_file_path" json:"events_file_path"`
	// DataPath is the path to the candle data file used for this backtest.
	DataPath string `yaml:"data_path" json:"data_path"`
}

func WriteBacktestStats(path string, stats []BacktestStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to marshal backtest stats to YAML", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to write backtest stats to file", err)
	}

	return nil
}

// ReadBacktestStats loads stats previously written by WriteBacktestStats.
func ReadBacktestStats(path string) ([]BacktestStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to read backtest stats", err)
	}

	var stats []BacktestStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse backtest stats", err)
	}

	return stats, nil
}
