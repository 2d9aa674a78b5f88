package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// barColumns is the layout of the bars relation, in table and parquet form.
var barColumns = []string{"exchange", "symbol", "timeframe", "time", "open", "high", "low", "close", "volume"}

// DuckDBBarSource reads bars from a DuckDB relation named bars. The relation is
// either a table filled through InsertBars or a view over a parquet file
// created by Initialize.
type DuckDBBarSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBBarSource opens the DuckDB database at path. An empty path opens an
// in-memory database.
func NewDuckDBBarSource(path string, log *logger.Logger) (*DuckDBBarSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		log.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to connect to database", err)
	}

	return &DuckDBBarSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize exposes a parquet file with the bar columns as the bars relation.
func (d *DuckDBBarSource) Initialize(parquetPath string) error {
	d.logger.Debug("Initializing DuckDB bar source", zap.String("path", parquetPath))

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS bars`); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	// squirrel has no CREATE VIEW; the path is quoted the way DuckDB expects.
	query := fmt.Sprintf(`CREATE VIEW bars AS SELECT %s FROM read_parquet('%s')`,
		strings.Join(barColumns, ", "), strings.ReplaceAll(parquetPath, "'", "''"))

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to load parquet file %s", parquetPath)
	}

	return nil
}

func (d *DuckDBBarSource) createTable() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			exchange TEXT,
			symbol TEXT,
			timeframe TEXT,
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to create bars table", err)
	}

	return nil
}

// InsertBars stores bars for the series named by req. Only the series fields
// of req are used.
func (d *DuckDBBarSource) InsertBars(ctx context.Context, req BarRequest, bars []types.Bar) error {
	if err := d.createTable(); err != nil {
		return err
	}

	if len(bars) == 0 {
		return nil
	}

	insert := d.sq.Insert("bars").Columns(barColumns...)
	for _, bar := range bars {
		insert = insert.Values(req.Exchange, req.Symbol, string(req.Timeframe), bar.Time.UTC(),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build insert", err)
	}

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert bars", err)
	}

	return nil
}

// FetchBars implements BarSource.
func (d *DuckDBBarSource) FetchBars(ctx context.Context, req BarRequest) ([]types.Bar, error) {
	query, args, err := d.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From("bars").
		Where(squirrel.Eq{
			"exchange":  req.Exchange,
			"symbol":    req.Symbol,
			"timeframe": string(req.Timeframe),
		}).
		Where(squirrel.GtOrEq{"time": req.Start.UTC()}).
		Where(squirrel.LtOrEq{"time": req.End.UTC()}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build bar query", err)
	}

	d.logger.Debug("Fetching bars",
		zap.String("request", req.String()),
		zap.String("query", query),
	)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeBarSourceFailed, err, "failed to query bars for %s", req)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var (
			timestamp              time.Time
			open, high, low, price float64
			volume                 float64
		)

		if err := rows.Scan(&timestamp, &open, &high, &low, &price, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeBarSourceFailed, "failed to scan bar", err)
		}

		bars = append(bars, types.Bar{
			Time:   timestamp.UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: volume,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBarSourceFailed, "error iterating bars", err)
	}

	return bars, nil
}

// Close releases the database connection.
func (d *DuckDBBarSource) Close() error {
	if d == nil || d.db == nil {
		return nil
	}

	return d.db.Close()
}
