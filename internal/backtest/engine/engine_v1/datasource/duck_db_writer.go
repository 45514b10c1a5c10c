package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// CandleWriter persists candles to a file that a DataSource can read back.
type CandleWriter interface {
	Initialize() error
	Write(candle types.Candle) error
	// Finalize commits the written candles and exports them to the output file.
	Finalize() (string, error)
	Close() error
}

// DuckDBWriter buffers candles in an in-memory DuckDB table and exports them as parquet or CSV,
// depending on the output file extension.
type DuckDBWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
	format     string
	logger     *logger.Logger
}

var _ CandleWriter = (*DuckDBWriter)(nil)

func NewDuckDBWriter(outputPath string, logger *logger.Logger) (*DuckDBWriter, error) {
	var format string

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".parquet":
		format = "FORMAT PARQUET"
	case ".csv":
		format = "FORMAT CSV, HEADER"
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported candle file %q: expected .parquet or .csv", outputPath)
	}

	return &DuckDBWriter{
		db:         nil,
		tx:         nil,
		stmt:       nil,
		outputPath: outputPath,
		format:     format,
		logger:     logger,
	}, nil
}

// Initialize opens the database, creates the candle table and prepares the insert statement.
func (w *DuckDBWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to open duckdb", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			bid DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create candles table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to begin transaction", err)
	}

	query, _, err := squirrel.Insert("candles").
		Columns("time", "open", "high", "low", "close", "volume", "bid").
		Values(nil, nil, nil, nil, nil, nil, nil).
		ToSql()
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to build insert statement", err)
	}

	w.stmt, err = w.tx.Prepare(query)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to prepare insert statement", err)
	}

	return nil
}

// Write inserts one candle inside the open transaction.
func (w *DuckDBWriter) Write(candle types.Candle) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeResultWriteFailed, "writer not initialized")
	}

	_, err := w.stmt.Exec(
		candle.Time,
		candle.Open,
		candle.High,
		candle.Low,
		candle.Close,
		candle.Volume,
		bidValue(candle.Bid),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to insert candle", err)
	}

	return nil
}

// Finalize commits the transaction and copies the table, ordered by time, to the output file.
func (w *DuckDBWriter) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeResultWriteFailed, "writer not initialized")
	}

	if err := w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to commit candles", err)
	}

	w.tx = nil

	escapedPath := strings.ReplaceAll(w.outputPath, "'", "''")

	// Using raw SQL as Squirrel doesn't support COPY
	_, err := w.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM candles ORDER BY time) TO '%s' (%s)`, escapedPath, w.format))
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to export candles to %s", w.outputPath)
	}

	w.logger.Debug("Candles exported", zap.String("path", w.outputPath))

	return w.outputPath, nil
}

// Close releases the statement and the database, rolling back an unfinished transaction.
func (w *DuckDBWriter) Close() error {
	var closeErrors []string

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, err.Error())
		}

		w.stmt = nil
	}

	if w.tx != nil {
		if err := w.tx.Rollback(); err != nil {
			w.logger.Warn("Failed to roll back candle transaction", zap.Error(err))
		}

		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, err.Error())
		}

		w.db = nil
	}

	if len(closeErrors) > 0 {
		return errors.Newf(errors.ErrCodeResultWriteFailed, "errors occurred during close: %s", strings.Join(closeErrors, "; "))
	}

	return nil
}

func bidValue(bid optional.Option[float64]) any {
	if value, err := bid.Take(); err == nil {
		return value
	}

	return nil
}
