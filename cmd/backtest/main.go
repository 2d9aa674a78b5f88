package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/coordinator"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/writer"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap/zapcore"
)

// openSource opens a DuckDB database file, or a parquet file exposed as the
// bars view, and puts a cache in front of it.
func openSource(path string, log *logger.Logger) (datasource.BarSource, func() error, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		source, err := datasource.NewDuckDBBarSource("", log)
		if err != nil {
			return nil, nil, err
		}

		if err := source.Initialize(path); err != nil {
			source.Close()

			return nil, nil, err
		}

		return datasource.NewCachedBarSource(source, 0, log), source.Close, nil
	}

	source, err := datasource.NewDuckDBBarSource(path, log)
	if err != nil {
		return nil, nil, err
	}

	return datasource.NewCachedBarSource(source, 0, log), source.Close, nil
}

func newLogger(cmd *cli.Command) (*logger.Logger, error) {
	level, err := zapcore.ParseLevel(cmd.String("log-level"))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	return logger.NewLoggerWithLevel(level)
}

// setup builds the coordinator shared by run and batch.
func setup(cmd *cli.Command, opts ...coordinator.Option) (*coordinator.Coordinator, *prometheus.Registry, func(), error) {
	log, err := newLogger(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	source, closeSource, err := openSource(cmd.String("data"), log)
	if err != nil {
		return nil, nil, nil, err
	}

	registry := prometheus.NewRegistry()

	recorder, err := metrics.NewRecorder(registry)
	if err != nil {
		closeSource()

		return nil, nil, nil, err
	}

	opts = append([]coordinator.Option{coordinator.WithLogger(log), coordinator.WithMetrics(recorder)}, opts...)
	cleanup := func() {
		closeSource()
		_ = log.Sync()
	}

	return coordinator.NewCoordinator(source, opts...), registry, cleanup, nil
}

func writeOutputs(ctx context.Context, cmd *cli.Command, registry *prometheus.Registry, results ...types.BacktestResult) error {
	if dir := cmd.String("output"); dir != "" {
		resultWriter := writer.NewDuckDBResultWriter(nil)

		for _, result := range results {
			target := dir
			if len(results) > 1 {
				target = filepath.Join(dir, result.BacktestID)
			}

			if err := resultWriter.Write(ctx, result, target); err != nil {
				return err
			}
		}
	}

	if path := cmd.String("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := types.LoadBacktestConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	progress := newProgress(cfg.Strategy.Type)

	c, registry, cleanup, err := setup(cmd, coordinator.WithCallbacks(progress.callbacks()))
	if err != nil {
		return err
	}
	defer cleanup()

	result, runErr := c.Run(ctx, cfg)
	progress.finish()

	fmt.Println(renderReport(result))

	if err := writeOutputs(ctx, cmd, registry, result); err != nil {
		return err
	}

	return runErr
}

func batchAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.StringSlice("config")

	cfgs := make([]types.BacktestConfig, len(paths))
	for i, path := range paths {
		cfg, err := types.LoadBacktestConfig(path)
		if err != nil {
			return err
		}

		cfgs[i] = cfg
	}

	c, registry, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	outcomes := c.RunBatch(ctx, cfgs, int(cmd.Int("concurrency")))

	results := make([]types.BacktestResult, len(outcomes))
	failed := 0

	for i, outcome := range outcomes {
		results[i] = outcome.Result
		if outcome.Err != nil {
			failed++
		}

		fmt.Println(TitleStyle.Render(paths[i]))
		fmt.Println(renderReport(outcome.Result))
	}

	if err := writeOutputs(ctx, cmd, registry, results...); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d backtests failed", failed, len(outcomes))
	}

	return nil
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	config := types.DefaultBacktestConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	fmt.Println(schema)

	return nil
}

func sharedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "data",
			Aliases:  []string{"d"},
			Usage:    "Path to a DuckDB database or a parquet file with a bars relation",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Directory for parquet exports, performance.yaml and result.json",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write run metrics in Prometheus text format to this file",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
			Value: "warn",
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "backtest",
		Usage:   "Replay stored bars through a compiled strategy",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a single backtest",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the backtest config YAML",
						Required: true,
					},
				}, sharedFlags()...),
				Action: runAction,
			},
			{
				Name:  "batch",
				Usage: "Run several backtests concurrently",
				Flags: append([]cli.Flag{
					&cli.StringSliceFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to a backtest config YAML (repeatable)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Maximum runs in flight",
						Value: 4,
					},
				}, sharedFlags()...),
				Action: batchAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the backtest config JSON schema",
				Action: schemaAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
