package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
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

var candleColumns = []string{
	"CAST(time AS TIMESTAMP) AS time",
	"CAST(open AS DOUBLE) AS open",
	"CAST(high AS DOUBLE) AS high",
	"CAST(low AS DOUBLE) AS low",
	"CAST(close AS DOUBLE) AS close",
	"CAST(volume AS DOUBLE) AS volume",
}

// DuckDBDataSource reads candles from a parquet or CSV file through a DuckDB view.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	hasBid bool
}

// NewDataSource opens a DuckDB database at path (":memory:" for an in-memory one).
// The candle file itself is attached by Initialize.
func NewDataSource(path string, logger *logger.Logger) (*DuckDBDataSource, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBDataSource{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		hasBid: false,
	}, nil
}

// Initialize implements DataSource.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	var reader string

	escapedPath := strings.ReplaceAll(path, "'", "''")

	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		reader = fmt.Sprintf("read_parquet('%s')", escapedPath)
	case ".csv":
		reader = fmt.Sprintf("read_csv_auto('%s', header = true)", escapedPath)
	default:
		return errors.Newf(errors.ErrCodeDataSourceUnavailable, "unsupported candle file %q: expected .parquet or .csv", path)
	}

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS candles;`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	// Using raw SQL as Squirrel doesn't support CREATE VIEW
	if _, err := d.db.Exec(fmt.Sprintf(`CREATE VIEW candles AS SELECT * FROM %s;`, reader)); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read candle file %s", path)
	}

	columns, err := d.columns()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to read candle file %s", path)
	}

	for _, required := range []string{"time", "open", "high", "low", "close", "volume"} {
		if !slices.Contains(columns, required) {
			return errors.Newf(errors.ErrCodeDataSourceUnavailable, "candle file %s has no %s column", path, required)
		}
	}

	d.hasBid = slices.Contains(columns, "bid")

	return nil
}

func (d *DuckDBDataSource) columns() ([]string, error) {
	rows, err := d.db.Query(`SELECT * FROM candles LIMIT 0`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to inspect candle columns", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to inspect candle columns", err)
	}

	for i, column := range columns {
		columns[i] = strings.ToLower(column)
	}

	return columns, nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	query, args, err := withTimeRange(d.sq.Select("COUNT(*)").From("candles"), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count candles", err)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Candle, error) bool) {
	return func(yield func(types.Candle, error) bool) {
		columns := slices.Clone(candleColumns)
		if d.hasBid {
			columns = append(columns, "CAST(bid AS DOUBLE) AS bid")
		}

		query, args, err := withTimeRange(d.sq.Select(columns...).From("candles"), start, end).
			OrderBy("time ASC").
			ToSql()
		if err != nil {
			yield(types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build candle query", err))

			return
		}

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query candles", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var (
				candle types.Candle
				bid    sql.NullFloat64
			)

			dest := []any{&candle.Time, &candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
			if d.hasBid {
				dest = append(dest, &bid)
			}

			if err := rows.Scan(dest...); err != nil {
				yield(types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan candle", err))

				return
			}

			if bid.Valid {
				candle.Bid = optional.Some(bid.Float64)
			} else {
				candle.Bid = optional.None[float64]()
			}

			if !yield(candle, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate candles", err))
		}
	}
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

func withTimeRange(query squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if s, err := start.Take(); err == nil {
		query = query.Where(squirrel.GtOrEq{"time": s})
	}

	if e, err := end.Take(); err == nil {
		query = query.Where(squirrel.LtOrEq{"time": e})
	}

	return query
}
