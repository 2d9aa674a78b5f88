package coordinator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/analyzer"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/metrics"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DefaultMinBars is the bar requirement of a strategy that declares no lookback.
const DefaultMinBars = 20

// Coordinator validates run configs, loads their bars and drives one fresh
// engine per run. It holds no per-run state, so one Coordinator may serve
// concurrent runs.
type Coordinator struct {
	source    datasource.BarSource
	log       *logger.Logger
	metrics   *metrics.Recorder
	callbacks engine.LifecycleCallbacks
	clock     func() time.Time
}

type Option func(*Coordinator)

func WithLogger(log *logger.Logger) Option {
	return func(c *Coordinator) {
		c.log = log
	}
}

// WithMetrics records every finished run on recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(c *Coordinator) {
		c.metrics = recorder
	}
}

// WithCallbacks passes lifecycle callbacks to every engine. Under RunBatch
// they are invoked from several goroutines.
func WithCallbacks(callbacks engine.LifecycleCallbacks) Option {
	return func(c *Coordinator) {
		c.callbacks = callbacks
	}
}

// WithClock replaces time.Now for timing and for seeding non-deterministic runs.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

func NewCoordinator(source datasource.BarSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		source: source,
		clock:  time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = logger.NewNopLogger()
	}

	return c
}

// RequiredBars is the number of bars a run needs given the longest declared
// lookback and the configured floor.
func RequiredBars(lookback, minBars int) int {
	required := lookback
	if required == 0 {
		required = DefaultMinBars
	}

	return max(required, minBars)
}

// Run executes one backtest. The result is populated on every path; on failure
// Success is false, Error holds the message and the coded error is returned.
func (c *Coordinator) Run(ctx context.Context, cfg types.BacktestConfig) (result types.BacktestResult, err error) {
	started := c.clock()
	result = types.BacktestResult{
		BacktestID:  uuid.NewString(),
		Status:      types.RunStatusFailed,
		Strategy:    string(cfg.Strategy.Type),
		Exchange:    cfg.Exchange,
		Symbol:      cfg.Symbol,
		Timeframe:   cfg.Timeframe,
		Trades:      []types.Trade{},
		EquityCurve: []types.PortfolioSnapshot{},
		Events:      []types.Event{},
	}

	log := c.log.With(
		zap.String("backtest_id", result.BacktestID),
		zap.String("strategy", result.Strategy),
		zap.String("symbol", cfg.Symbol),
	)

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodeBacktestFailed, "backtest panicked: %v", r)
			result.Status = types.RunStatusFailed
		}

		c.finalize(&result, err, started, log)
	}()

	err = c.run(ctx, cfg, &result, log)

	return result, err
}

func (c *Coordinator) run(ctx context.Context, cfg types.BacktestConfig, result *types.BacktestResult, log *logger.Logger) error {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid backtest config", err)
	}

	if err := version.CheckCurrent(cfg.Strategy.EngineVersion); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "strategy engine version constraint not met", err)
	}

	seed := cfg.RandomSeed
	if !cfg.Deterministic {
		seed = c.clock().UnixNano()
	}

	result.Seed = seed
	rng := rand.New(rand.NewSource(seed))

	strat, err := strategy.New(cfg.Strategy, rng)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid strategy config", err)
	}

	registry := indicator.NewDefaultRegistry()

	lookback, err := indicator.ValidateRequirements(registry, strat.DeclareDataRequirements())
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, "invalid strategy data requirements", err)
	}

	required := RequiredBars(lookback, cfg.MinBars)

	bars, err := c.fetch(ctx, cfg, required, log)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeBacktestCancelled) {
			result.Status = types.RunStatusCancelled
		}

		return err
	}

	log.Info("Backtest started", zap.Int("bars", len(bars)), zap.Int("required_bars", required), zap.Int64("seed", seed))

	eng := engine_v1.NewBacktestEngineV1(engine_v1.ConfigFromBacktest(cfg), strat, rng,
		engine_v1.WithLogger(log),
		engine_v1.WithCallbacks(c.callbacks),
		engine_v1.WithBacktestID(result.BacktestID),
		engine_v1.WithIndicatorRegistry(registry),
	)

	output, runErr := eng.Run(ctx, bars)

	result.Status = output.Status
	result.Partial = output.Partial
	result.BarsProcessed = output.BarsProcessed
	result.SkippedBars = output.SkippedBars
	result.IgnoredSignals = output.IgnoredSignals

	if output.Trades != nil {
		result.Trades = output.Trades
	}

	if output.EquityCurve != nil {
		result.EquityCurve = output.EquityCurve
	}

	if output.Events != nil {
		result.Events = output.Events
	}

	result.Performance = analyzer.Analyze(result.Trades, result.EquityCurve, cfg.InitialCapital, cfg.PeriodsPerYear)

	if runErr != nil && errors.GetCode(runErr) == errors.ErrCodeUnknown {
		return errors.Wrap(errors.ErrCodeBacktestFailed, "backtest failed", runErr)
	}

	return runErr
}

// fetch loads and checks the bars for cfg. Short or empty data is an error and
// is never filled in.
func (c *Coordinator) fetch(ctx context.Context, cfg types.BacktestConfig, required int, log *logger.Logger) ([]types.Bar, error) {
	req := datasource.RequestFromConfig(cfg)

	bars, err := c.source.FetchBars(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest cancelled while loading bars", ctx.Err())
		}

		if errors.GetCode(err) == errors.ErrCodeUnknown {
			return nil, errors.Wrapf(errors.ErrCodeBarSourceFailed, err, "failed to fetch bars for %s", req)
		}

		return nil, err
	}

	if err := datasource.ValidateSeries(bars); err != nil {
		return nil, err
	}

	if len(bars) < required {
		detail := &errors.InsufficientHistoricalDataError{
			Exchange:  req.Exchange,
			Symbol:    req.Symbol,
			Timeframe: string(req.Timeframe),
			Start:     req.Start,
			End:       req.End,
			Required:  required,
			Actual:    len(bars),
		}

		log.Warn("Insufficient historical data",
			zap.Int("required_bars", required),
			zap.Int("actual_bars", len(bars)),
		)

		return nil, errors.Wrap(errors.ErrCodeInsufficientHistoricalData,
			fmt.Sprintf("strategy %s needs %d bars", cfg.Strategy.Type, required), detail)
	}

	return bars, nil
}

func (c *Coordinator) finalize(result *types.BacktestResult, err error, started time.Time, log *logger.Logger) {
	elapsed := c.clock().Sub(started)
	result.ExecutionTimeMs = elapsed.Milliseconds()
	result.Success = err == nil && result.Status == types.RunStatusCompleted

	if err != nil {
		result.Error = optional.Some(err.Error())

		if result.Status == types.RunStatusCancelled {
			log.Warn("Backtest cancelled", zap.Error(err))
		} else {
			log.Warn("Backtest failed", zap.String("status", string(result.Status)), zap.Error(err))
		}
	} else {
		result.Error = optional.None[string]()

		log.Info("Backtest completed",
			zap.Int("trades", len(result.Trades)),
			zap.Int("skipped_bars", result.SkippedBars),
			zap.Float64("total_return", result.Performance.TotalReturn),
			zap.Int64("execution_time_ms", result.ExecutionTimeMs),
		)
	}

	c.metrics.RecordRun(*result, elapsed)
}
