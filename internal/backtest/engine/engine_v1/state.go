package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const (
	eventsFileName = "events.parquet"
	statsFileName  = "stats.yaml"
)

// BacktestState stores the position events of finished runs in an in-memory DuckDB database
// and derives the run statistics from them.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// RunSummary carries the run level values that are not part of the event log.
type RunSummary struct {
	RunID          string
	Symbol         string
	Strategy       string
	DataPath       string
	InitialBalance float64
	FinalBalance   float64
	// UnrealizedPnL of the positions still open at the end of the run.
	UnrealizedPnL float64
	BuyAndHoldPnL float64
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open state database", err)
	}

	return &BacktestState{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the position_events table.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS position_events (
			run_id TEXT,
			position_id UBIGINT,
			side TEXT,
			entry_price DOUBLE,
			quantity DOUBLE,
			open_index INTEGER,
			open_time TIMESTAMP,
			close_index INTEGER,
			close_time TIMESTAMP,
			holding_ticks INTEGER,
			exit_price DOUBLE,
			profit DOUBLE,
			reason TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create position_events table", err)
	}

	return nil
}

// Record inserts the events of one run in a single transaction. candles resolve the open and
// close indexes to timestamps.
func (b *BacktestState) Record(runID string, events []types.PositionEvent, candles []types.Candle) error {
	tx, err := b.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	for _, event := range events {
		var closeIndex, closeTime, holdingTicks any

		if event.IsClosed() {
			idx := event.CloseIndex.Unwrap()
			closeIndex = idx
			closeTime = candleTime(candles, idx)
			holdingTicks, _ = event.HoldingTicks()
		}

		insertQuery := b.sq.
			Insert("position_events").
			Columns(
				"run_id", "position_id", "side", "entry_price", "quantity", "open_index", "open_time",
				"close_index", "close_time", "holding_ticks", "exit_price", "profit", "reason",
			).
			Values(
				runID, event.PositionID, string(event.Side), event.EntryPrice, event.Quantity,
				event.OpenIndex, candleTime(candles, event.OpenIndex),
				closeIndex, closeTime, holdingTicks, nullable(event.ExitPrice), nullable(event.Profit), nullableString(string(event.Reason)),
			).
			RunWith(tx)

		if _, err := insertQuery.Exec(); err != nil {
			_ = tx.Rollback()

			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to insert event of position %d", event.PositionID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit transaction", err)
	}

	b.logger.Debug("Recorded position events",
		zap.String("run_id", runID),
		zap.Int("events", len(events)),
	)

	return nil
}

// GetStats computes the statistics of one recorded run.
func (b *BacktestState) GetStats(summary RunSummary) (types.BacktestStats, error) {
	result, err := b.calculateTradeResult(summary.RunID)
	if err != nil {
		return types.BacktestStats{}, err
	}

	holding, err := b.calculateHoldingTicks(summary.RunID)
	if err != nil {
		return types.BacktestStats{}, err
	}

	pnl, err := b.calculatePnl(summary.RunID)
	if err != nil {
		return types.BacktestStats{}, err
	}

	pnl.UnrealizedPnL = summary.UnrealizedPnL
	pnl.TotalPnL = pnl.RealizedPnL + pnl.UnrealizedPnL

	return types.BacktestStats{
		ID:                summary.RunID,
		Timestamp:         time.Now(),
		Symbol:            summary.Symbol,
		Strategy:          summary.Strategy,
		InitialBalance:    summary.InitialBalance,
		FinalBalance:      summary.FinalBalance,
		TradeResult:       result,
		TradeHoldingTicks: holding,
		TradePnl:          pnl,
		BuyAndHoldPnl:     summary.BuyAndHoldPnL,
		EventsFilePath:    "",
		DataPath:          summary.DataPath,
	}, nil
}

func (b *BacktestState) calculateTradeResult(runID string) (types.TradeResult, error) {
	query := `
		SELECT
			COUNT(*) AS total_positions,
			COUNT(close_index) AS closed_positions,
			COUNT(*) FILTER (WHERE profit > 0) AS winning_trades,
			COUNT(*) FILTER (WHERE profit < 0) AS losing_trades
		FROM position_events
		WHERE run_id = ?
	`

	var result types.TradeResult

	err := b.db.QueryRow(query, runID).Scan(
		&result.NumberOfPositions,
		&result.NumberOfClosedPositions,
		&result.NumberOfWinningTrades,
		&result.NumberOfLosingTrades,
	)
	if err != nil {
		return types.TradeResult{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate trade result", err)
	}

	if result.NumberOfClosedPositions > 0 {
		result.WinRate = float64(result.NumberOfWinningTrades) / float64(result.NumberOfClosedPositions)
	}

	result.ExitReasons, err = b.countExitReasons(runID)
	if err != nil {
		return types.TradeResult{}, err
	}

	return result, nil
}

func (b *BacktestState) countExitReasons(runID string) (map[types.ExitReason]int, error) {
	rows, err := b.sq.
		Select("reason", "COUNT(*)").
		From("position_events").
		Where(squirrel.Eq{"run_id": runID}).
		Where(squirrel.NotEq{"reason": nil}).
		GroupBy("reason").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count exit reasons", err)
	}
	defer rows.Close()

	reasons := make(map[types.ExitReason]int)

	for rows.Next() {
		var (
			reason string
			count  int
		)

		if err := rows.Scan(&reason, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan exit reason", err)
		}

		reasons[types.ExitReason(reason)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate exit reasons", err)
	}

	return reasons, nil
}

func (b *BacktestState) calculateHoldingTicks(runID string) (types.TradeHoldingTicks, error) {
	query := `
		SELECT
			COALESCE(MIN(holding_ticks), 0),
			COALESCE(MAX(holding_ticks), 0),
			COALESCE(AVG(holding_ticks), 0)
		FROM position_events
		WHERE run_id = ? AND holding_ticks IS NOT NULL
	`

	var holding types.TradeHoldingTicks

	err := b.db.QueryRow(query, runID).Scan(&holding.Min, &holding.Max, &holding.Avg)
	if err != nil {
		return types.TradeHoldingTicks{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate holding ticks", err)
	}

	return holding, nil
}

func (b *BacktestState) calculatePnl(runID string) (types.TradePnl, error) {
	query := b.sq.
		Select(
			"COALESCE(SUM(profit), 0)",
			// a run without losers reports no maximum loss, and one without winners no maximum profit
			"COALESCE(MIN(profit) FILTER (WHERE profit < 0), 0)",
			"COALESCE(MAX(profit) FILTER (WHERE profit > 0), 0)",
		).
		From("position_events").
		Where(squirrel.Eq{"run_id": runID}).
		Where(squirrel.NotEq{"profit": nil}).
		RunWith(b.db)

	var pnl types.TradePnl

	if err := query.QueryRow().Scan(&pnl.RealizedPnL, &pnl.MaximumLoss, &pnl.MaximumProfit); err != nil {
		return types.TradePnl{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to calculate pnl", err)
	}

	return pnl, nil
}

// Write exports the events of the run to events.parquet and the stats to stats.yaml in folder.
func (b *BacktestState) Write(folder string, stats types.BacktestStats) (types.BacktestStats, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return stats, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create results folder", err)
	}

	eventsPath := filepath.Join(folder, eventsFileName)
	escapedRunID := strings.ReplaceAll(stats.ID, "'", "''")
	escapedPath := strings.ReplaceAll(eventsPath, "'", "''")

	// Using raw SQL as Squirrel doesn't support COPY
	_, err := b.db.Exec(fmt.Sprintf(
		`COPY (SELECT * FROM position_events WHERE run_id = '%s' ORDER BY position_id) TO '%s' (FORMAT PARQUET)`,
		escapedRunID, escapedPath,
	))
	if err != nil {
		return stats, errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to export events to parquet", err)
	}

	stats.EventsFilePath = eventsPath

	statsPath := filepath.Join(folder, statsFileName)
	if err := types.WriteBacktestStats(statsPath, []types.BacktestStats{stats}); err != nil {
		return stats, err
	}

	b.logger.Info("Successfully exported backtest results",
		zap.String("events", eventsPath),
		zap.String("stats", statsPath),
	)

	return stats, nil
}

func (b *BacktestState) Close() error {
	return b.db.Close()
}

func nullable[T any](value optional.Option[T]) any {
	v, err := value.Take()
	if err != nil {
		return nil
	}

	return v
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}

	return value
}

func candleTime(candles []types.Candle, index int) any {
	if index < 0 || index >= len(candles) || candles[index].Time.IsZero() {
		return nil
	}

	return candles[index].Time
}
