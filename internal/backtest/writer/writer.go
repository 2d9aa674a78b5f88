package writer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const (
	TradesFile      = "trades.parquet"
	EquityCurveFile = "equity_curve.parquet"
	EventsFile      = "events.parquet"
	PerformanceFile = "performance.yaml"
	ResultFile      = "result.json"
)

// insertBatchSize bounds the rows sent in a single INSERT.
const insertBatchSize = 500

// ResultWriter persists a finished run.
type ResultWriter interface {
	Write(ctx context.Context, result types.BacktestResult, dir string) error
}

// DuckDBResultWriter stages a result in an in-memory DuckDB database and
// exports its tables as parquet next to a YAML report and the JSON result.
// Every Write uses its own database.
type DuckDBResultWriter struct {
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewDuckDBResultWriter(log *logger.Logger) *DuckDBResultWriter {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &DuckDBResultWriter{
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// Write implements ResultWriter. dir is created if missing.
func (w *DuckDBResultWriter) Write(ctx context.Context, result types.BacktestResult, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to create directory %s", dir)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to open database", err)
	}
	defer db.Close()

	if err := createTables(ctx, db); err != nil {
		return err
	}

	if err := w.insertTrades(ctx, db, result); err != nil {
		return err
	}

	if err := w.insertEquityCurve(ctx, db, result); err != nil {
		return err
	}

	if err := w.insertEvents(ctx, db, result); err != nil {
		return err
	}

	for table, file := range map[string]string{
		"trades":       TradesFile,
		"equity_curve": EquityCurveFile,
		"events":       EventsFile,
	} {
		path := filepath.Join(dir, file)

		_, err := db.ExecContext(ctx, fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, strings.ReplaceAll(path, "'", "''")))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to export %s to parquet", table)
		}
	}

	if err := types.WritePerformanceReport(filepath.Join(dir, PerformanceFile), result.Performance); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to write performance report", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to marshal result", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ResultFile), data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to write result", err)
	}

	w.logger.Info("Backtest result written",
		zap.String("backtest_id", result.BacktestID),
		zap.String("dir", dir),
		zap.Int("trades", len(result.Trades)),
		zap.Int("snapshots", len(result.EquityCurve)),
	)

	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE trades (
			backtest_id TEXT,
			seq INTEGER,
			side TEXT,
			entry_time TIMESTAMP,
			entry_price DOUBLE,
			exit_time TIMESTAMP,
			exit_price DOUBLE,
			quantity DOUBLE,
			fee DOUBLE,
			pnl DOUBLE,
			exit_reason TEXT
		);
		CREATE TABLE equity_curve (
			backtest_id TEXT,
			seq INTEGER,
			time TIMESTAMP,
			cash DOUBLE,
			position_value DOUBLE,
			equity DOUBLE,
			drawdown DOUBLE
		);
		CREATE TABLE events (
			backtest_id TEXT,
			bar_index INTEGER,
			time TIMESTAMP,
			kind TEXT,
			code INTEGER,
			message TEXT
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to create result tables", err)
	}

	return nil
}

func (w *DuckDBResultWriter) insertTrades(ctx context.Context, db *sql.DB, result types.BacktestResult) error {
	return w.insertBatched(ctx, db, "trades", len(result.Trades), func(insert squirrel.InsertBuilder, i int) squirrel.InsertBuilder {
		t := result.Trades[i]

		return insert.Values(result.BacktestID, i, string(t.Side), t.EntryTime.UTC(), t.EntryPrice,
			t.ExitTime.UTC(), t.ExitPrice, t.Quantity, t.Fee, t.PnL, string(t.ExitReason))
	}, "backtest_id", "seq", "side", "entry_time", "entry_price", "exit_time", "exit_price", "quantity", "fee", "pnl", "exit_reason")
}

func (w *DuckDBResultWriter) insertEquityCurve(ctx context.Context, db *sql.DB, result types.BacktestResult) error {
	return w.insertBatched(ctx, db, "equity_curve", len(result.EquityCurve), func(insert squirrel.InsertBuilder, i int) squirrel.InsertBuilder {
		s := result.EquityCurve[i]

		return insert.Values(result.BacktestID, i, s.Time.UTC(), s.Cash, s.PositionValue, s.Equity, s.Drawdown)
	}, "backtest_id", "seq", "time", "cash", "position_value", "equity", "drawdown")
}

func (w *DuckDBResultWriter) insertEvents(ctx context.Context, db *sql.DB, result types.BacktestResult) error {
	return w.insertBatched(ctx, db, "events", len(result.Events), func(insert squirrel.InsertBuilder, i int) squirrel.InsertBuilder {
		e := result.Events[i]

		return insert.Values(result.BacktestID, e.BarIndex, e.Time.UTC(), string(e.Kind), e.Code, e.Message)
	}, "backtest_id", "bar_index", "time", "kind", "code", "message")
}

func (w *DuckDBResultWriter) insertBatched(
	ctx context.Context,
	db *sql.DB,
	table string,
	rows int,
	row func(squirrel.InsertBuilder, int) squirrel.InsertBuilder,
	columns ...string,
) error {
	for from := 0; from < rows; from += insertBatchSize {
		insert := w.sq.Insert(table).Columns(columns...)

		for i := from; i < min(from+insertBatchSize, rows); i++ {
			insert = row(insert, i)
		}

		if _, err := insert.RunWith(db).ExecContext(ctx); err != nil {
			return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to insert into %s", table)
		}
	}

	return nil
}
