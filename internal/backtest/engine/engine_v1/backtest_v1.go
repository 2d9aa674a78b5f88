package engine

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/portfolio"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type BacktestEngineV1 struct {
	mu     sync.Mutex
	status types.RunStatus

	config            Config
	strategy          strategy.Strategy
	indicatorRegistry indicator.IndicatorRegistry
	rng               *rand.Rand
	log               *logger.Logger
	callbacks         engine.LifecycleCallbacks
	backtestID        string
	span              int

	portfolio       *portfolio.Portfolio
	events          []types.Event
	processed       int
	skipped         int
	ignored         int
	strategyErrors  int
	lastStrategyErr error
}

// Option configures a BacktestEngineV1.
type Option func(*BacktestEngineV1)

// WithLogger sets the engine logger.
func WithLogger(log *logger.Logger) Option {
	return func(b *BacktestEngineV1) {
		b.log = log
	}
}

// WithCallbacks sets the lifecycle callbacks.
func WithCallbacks(callbacks engine.LifecycleCallbacks) Option {
	return func(b *BacktestEngineV1) {
		b.callbacks = callbacks
	}
}

// WithBacktestID tags logs and callbacks with the run identifier.
func WithBacktestID(id string) Option {
	return func(b *BacktestEngineV1) {
		b.backtestID = id
	}
}

// WithIndicatorRegistry replaces the per-run default indicator registry.
func WithIndicatorRegistry(registry indicator.IndicatorRegistry) Option {
	return func(b *BacktestEngineV1) {
		b.indicatorRegistry = registry
	}
}

// NewBacktestEngineV1 creates an engine for a single run of strat. rng is the
// run's private random source and is used for slippage draws.
func NewBacktestEngineV1(config Config, strat strategy.Strategy, rng *rand.Rand, opts ...Option) engine.Engine {
	b := &BacktestEngineV1{
		status:   types.RunStatusIdle,
		config:   config,
		strategy: strat,
		rng:      rng,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.log == nil {
		b.log = logger.NewNopLogger()
	}

	if b.indicatorRegistry == nil {
		b.indicatorRegistry = indicator.NewDefaultRegistry()
	}

	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(0))
	}

	return b
}

// Status implements engine.Engine.
func (b *BacktestEngineV1) Status() types.RunStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.status
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, bars []types.Bar) (output engine.Output, err error) {
	if err := b.start(); err != nil {
		return engine.Output{Status: b.Status()}, err
	}

	defer func() {
		if b.callbacks.OnRunEnd != nil {
			(*b.callbacks.OnRunEnd)(output.Status, err)
		}
	}()

	log := b.log.With(
		zap.String("backtest_id", b.backtestID),
		zap.String("strategy", b.strategy.Name()),
	)
	total := len(bars)
	b.portfolio = portfolio.New(b.config.InitialCapital)

	log.Info("Backtest started", zap.Int("total_bars", total))

	if b.callbacks.OnRunStart != nil {
		if cbErr := (*b.callbacks.OnRunStart)(b.backtestID, total); cbErr != nil {
			return b.finish(types.RunStatusCancelled, errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest aborted by start callback", cbErr))
		}
	}

	requirements := b.strategy.DeclareDataRequirements()
	b.span = b.historySpan(requirements)

	log.Debug("History window", zap.Int("bars", b.span))

	for i, bar := range bars {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("Backtest cancelled",
				zap.Int("bars_processed", b.processed),
				zap.Int("total_bars", total),
			)

			return b.finish(types.RunStatusCancelled, errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest cancelled", ctxErr))
		}

		b.checkExits(i, bar)

		price := decimal.NewFromFloat(bar.Close)
		signal, stratErr := b.invoke(b.window(bars, i), requirements, b.portfolio.View(price))
		b.processed++

		if stratErr != nil {
			b.recordStrategyError(i, bar, stratErr)
			log.Debug("Strategy failed on bar",
				zap.Int("bar_index", i),
				zap.Error(stratErr),
			)

			if b.processed >= b.config.ErrorRatioMinBars && b.errorRatioExceeded() {
				b.portfolio.MarkToMarket(price, bar.Time)
				log.Warn("Strategy error ratio exceeded",
					zap.Int("strategy_errors", b.strategyErrors),
					zap.Int("bars_processed", b.processed),
				)

				return b.finish(types.RunStatusFailed, b.errorRatioError())
			}
		} else if signal.IsSome() {
			b.apply(i, bar, signal.Unwrap())
		}

		snapshot := b.portfolio.MarkToMarket(price, bar.Time)
		log.Debug("Processed bar",
			zap.Int("bar_index", i),
			zap.Time("time", bar.Time),
			zap.Float64("equity", snapshot.Equity),
		)

		if b.callbacks.OnProcessBar != nil {
			if cbErr := (*b.callbacks.OnProcessBar)(i+1, total); cbErr != nil {
				return b.finish(types.RunStatusCancelled, errors.Wrap(errors.ErrCodeBacktestCancelled, "backtest aborted by progress callback", cbErr))
			}
		}
	}

	if b.strategyErrors > 0 && b.errorRatioExceeded() {
		log.Warn("Strategy error ratio exceeded",
			zap.Int("strategy_errors", b.strategyErrors),
			zap.Int("bars_processed", b.processed),
		)

		return b.finish(types.RunStatusFailed, b.errorRatioError())
	}

	b.liquidate(bars, log)

	output, err = b.finish(types.RunStatusCompleted, nil)
	log.Info("Backtest completed",
		zap.Int("bars_processed", output.BarsProcessed),
		zap.Int("trades", len(output.Trades)),
		zap.Int("ignored_signals", output.IgnoredSignals),
	)

	return output, err
}

func (b *BacktestEngineV1) start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.status != types.RunStatusIdle {
		return errors.Newf(errors.ErrCodeEngineState, "engine already used: status is %s", b.status)
	}

	if b.strategy == nil {
		b.status = types.RunStatusFailed

		return errors.New(errors.ErrCodeEngineState, "engine has no strategy")
	}

	b.status = types.RunStatusRunning

	return nil
}

func (b *BacktestEngineV1) finish(status types.RunStatus, err error) (engine.Output, error) {
	b.mu.Lock()
	b.status = status
	b.mu.Unlock()

	return engine.Output{
		Status:         status,
		Partial:        status != types.RunStatusCompleted,
		Trades:         b.portfolio.Trades(),
		EquityCurve:    b.portfolio.EquityCurve(),
		Events:         append([]types.Event(nil), b.events...),
		BarsProcessed:  b.processed,
		SkippedBars:    b.skipped,
		IgnoredSignals: b.ignored,
		StrategyErrors: b.strategyErrors,
	}, err
}

// window returns the bars visible to the strategy at index i, capped so the
// strategy cannot append into the caller's slice.
func (b *BacktestEngineV1) window(bars []types.Bar, i int) []types.Bar {
	start := 0
	if b.span > 0 && i+1 > b.span {
		start = i + 1 - b.span
	}

	return bars[start : i+1 : i+1]
}

// historySpan is the configured history window, or the longest declared
// lookback plus a warm-up margin when none is configured. Recursive indicators
// (EMA, RSI) settle within the margin.
func (b *BacktestEngineV1) historySpan(requirements []types.DataRequirement) int {
	if b.config.HistoryWindow > 0 {
		return b.config.HistoryWindow
	}

	lookback := 0

	for _, req := range requirements {
		ind, err := b.indicatorRegistry.GetIndicator(req.Indicator)
		if err != nil {
			continue
		}

		lookback = max(lookback, ind.Lookback(req))
	}

	return lookback + max(WarmupFactor*lookback, MinWarmupBars)
}

// invoke computes indicators and runs the strategy for one bar. A panic inside
// the strategy is returned as a StrategyRuntimeError.
func (b *BacktestEngineV1) invoke(history []types.Bar, requirements []types.DataRequirement, view types.PortfolioView) (signal optional.Option[types.Signal], err error) {
	defer func() {
		if r := recover(); r != nil {
			signal = optional.None[types.Signal]()
			err = errors.Newf(errors.ErrCodeStrategyRuntimeError, "strategy panicked: %v", r)
		}
	}()

	values, err := indicator.Compute(b.indicatorRegistry, requirements, history)
	if err != nil {
		return optional.None[types.Signal](), errors.Wrap(errors.ErrCodeStrategyRuntimeError, "failed to compute indicators", err)
	}

	signal, err = b.strategy.OnBar(history, values, view)
	if err != nil {
		return optional.None[types.Signal](), errors.Wrap(errors.ErrCodeStrategyRuntimeError, "strategy returned an error", err)
	}

	return signal, nil
}

func (b *BacktestEngineV1) recordStrategyError(i int, bar types.Bar, err error) {
	b.strategyErrors++
	b.skipped++
	b.lastStrategyErr = err
	b.events = append(b.events, types.Event{
		BarIndex: i,
		Time:     bar.Time,
		Kind:     types.EventKindStrategyError,
		Code:     int(errors.GetCode(err)),
		Message:  err.Error(),
	})
}

func (b *BacktestEngineV1) errorRatioExceeded() bool {
	if b.processed == 0 {
		return false
	}

	return float64(b.strategyErrors)/float64(b.processed) > b.config.MaxStrategyErrorRatio
}

func (b *BacktestEngineV1) errorRatioError() error {
	return errors.Wrapf(errors.ErrCodeStrategyErrorRateExceeded, b.lastStrategyErr,
		"strategy failed on %d of %d bars, above the allowed ratio of %v",
		b.strategyErrors, b.processed, b.config.MaxStrategyErrorRatio)
}

// apply turns an actionable signal into a portfolio operation. Anything the
// portfolio cannot act on is recorded as an ignored signal.
func (b *BacktestEngineV1) apply(i int, bar types.Bar, signal types.Signal) {
	if err := signal.Validate(); err != nil {
		b.ignore(i, bar, errors.Wrap(errors.ErrCodeInvalidSignal, "invalid signal", err))

		return
	}

	side := b.portfolio.Side()

	switch {
	case signal.Type == types.SignalTypeHold:
		return
	case side == types.PositionSideFlat && signal.Type == types.SignalTypeBuy:
		b.open(i, bar, types.PositionSideLong, signal)
	case side == types.PositionSideFlat && signal.Type == types.SignalTypeSell:
		if !b.config.AllowShort {
			b.ignore(i, bar, errors.New(errors.ErrCodeInvalidSignal, "sell while flat ignored: short selling is disabled"))

			return
		}

		b.open(i, bar, types.PositionSideShort, signal)
	case side == types.PositionSideLong && signal.Type == types.SignalTypeSell,
		side == types.PositionSideShort && signal.Type == types.SignalTypeBuy:
		b.close(i, bar, signal)
	default:
		b.ignore(i, bar, errors.Newf(errors.ErrCodeInvalidSignal, "%s signal is not actionable while %s", signal.Type, side))
	}
}

// fillPrice resolves the execution price of a signal: the requested price when
// it lies inside the bar, otherwise the close, then moved against the trader by
// up to SlippageBps.
func (b *BacktestEngineV1) fillPrice(bar types.Bar, signal types.Signal) (decimal.Decimal, error) {
	price := bar.Close

	if signal.Price > 0 {
		if signal.Price < bar.Low || signal.Price > bar.High {
			return decimal.Zero, errors.Newf(errors.ErrCodeInvalidSignal,
				"signal price %v is outside the bar range [%v, %v]", signal.Price, bar.Low, bar.High)
		}

		price = signal.Price
	}

	if b.config.SlippageBps > 0 {
		slip := price * b.config.SlippageBps / 10000 * b.rng.Float64()
		if signal.Type == types.SignalTypeBuy {
			price = math.Min(price+slip, bar.High)
		} else {
			price = math.Max(price-slip, bar.Low)
		}
	}

	return decimal.NewFromFloat(price), nil
}

func (b *BacktestEngineV1) open(i int, bar types.Bar, side types.PositionSide, signal types.Signal) {
	price, err := b.fillPrice(bar, signal)
	if err != nil {
		b.ignore(i, bar, err)

		return
	}

	var quantity decimal.Decimal

	if signal.Quantity.IsSome() {
		quantity = decimal.NewFromFloat(signal.Quantity.Unwrap())
	} else {
		fraction := 1.0
		if signal.Fraction.IsSome() {
			fraction = signal.Fraction.Unwrap()
		}

		quantity = b.portfolio.MaxAffordableQuantity(price, b.config.FeeRate, decimal.NewFromFloat(fraction))
	}

	if !quantity.IsPositive() {
		b.ignore(i, bar, errors.Newf(errors.ErrCodeInsufficientCash, "no cash available to open %s at %s", side, price))

		return
	}

	if err := b.portfolio.Open(side, price, quantity, b.config.FeeRate, bar.Time); err != nil {
		b.ignore(i, bar, err)

		return
	}

	b.portfolio.SetProtection(signal.StopLoss, signal.TakeProfit)

	b.log.Debug("Opened position",
		zap.String("backtest_id", b.backtestID),
		zap.Int("bar_index", i),
		zap.String("side", string(side)),
		zap.String("price", price.String()),
		zap.String("quantity", quantity.String()),
		zap.String("reason", signal.Reason),
	)
}

func (b *BacktestEngineV1) close(i int, bar types.Bar, signal types.Signal) {
	price, err := b.fillPrice(bar, signal)
	if err != nil {
		b.ignore(i, bar, err)

		return
	}

	trade, err := b.portfolio.Close(price, b.config.FeeRate, bar.Time, types.ExitReasonSignal)
	if err != nil {
		b.ignore(i, bar, err)

		return
	}

	b.log.Debug("Closed position",
		zap.String("backtest_id", b.backtestID),
		zap.Int("bar_index", i),
		zap.Float64("price", trade.ExitPrice),
		zap.Float64("pnl", trade.PnL),
		zap.String("reason", signal.Reason),
	)
}

func (b *BacktestEngineV1) ignore(i int, bar types.Bar, err error) {
	b.ignored++
	b.events = append(b.events, types.Event{
		BarIndex: i,
		Time:     bar.Time,
		Kind:     types.EventKindSignalIgnored,
		Code:     int(errors.GetCode(err)),
		Message:  err.Error(),
	})
}

// checkExits closes the open position when the bar range touches its
// stop-loss, take-profit or, for shorts, margin-call level. The stop is checked
// first. A bar that opens beyond a level fills at the open.
func (b *BacktestEngineV1) checkExits(i int, bar types.Bar) {
	if b.portfolio.IsFlat() {
		return
	}

	stopLoss, takeProfit := b.portfolio.Protection()

	switch b.portfolio.Side() {
	case types.PositionSideLong:
		if stopLoss.IsSome() && bar.Low <= stopLoss.Unwrap() {
			b.forceClose(i, bar, decimal.NewFromFloat(math.Min(stopLoss.Unwrap(), bar.Open)), types.ExitReasonStopLoss)

			return
		}

		if takeProfit.IsSome() && bar.High >= takeProfit.Unwrap() {
			b.forceClose(i, bar, decimal.NewFromFloat(math.Max(takeProfit.Unwrap(), bar.Open)), types.ExitReasonTakeProfit)
		}
	case types.PositionSideShort:
		marginCall, _ := b.portfolio.MarginCallPrice(b.config.FeeRate)

		if stopLoss.IsSome() && bar.High >= stopLoss.Unwrap() {
			fill := decimal.NewFromFloat(math.Max(stopLoss.Unwrap(), bar.Open))
			if fill.LessThan(marginCall) && b.forceClose(i, bar, fill, types.ExitReasonStopLoss) {
				return
			}
		}

		if bar.High >= marginCall.InexactFloat64() {
			b.forceClose(i, bar, marginCall, types.ExitReasonMarginCall)

			return
		}

		if takeProfit.IsSome() && bar.Low <= takeProfit.Unwrap() {
			b.forceClose(i, bar, decimal.NewFromFloat(math.Min(takeProfit.Unwrap(), bar.Open)), types.ExitReasonTakeProfit)
		}
	}
}

func (b *BacktestEngineV1) forceClose(i int, bar types.Bar, price decimal.Decimal, reason types.ExitReason) bool {
	trade, err := b.portfolio.Close(price, b.config.FeeRate, bar.Time, reason)
	if err != nil {
		b.log.Debug("Forced close rejected",
			zap.String("backtest_id", b.backtestID),
			zap.Int("bar_index", i),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)

		return false
	}

	b.events = append(b.events, types.Event{
		BarIndex: i,
		Time:     bar.Time,
		Kind:     exitEventKind(reason),
		Message:  fmt.Sprintf("%s position closed at %v with pnl %v", trade.Side, trade.ExitPrice, trade.PnL),
	})

	return true
}

// liquidate closes any position left open after the last bar at the final
// close and restates the last snapshot so the curve ends on realized equity.
func (b *BacktestEngineV1) liquidate(bars []types.Bar, log *logger.Logger) {
	if b.portfolio.IsFlat() || len(bars) == 0 {
		return
	}

	lastIndex := len(bars) - 1
	lastBar := bars[lastIndex]
	price := decimal.NewFromFloat(lastBar.Close)

	fee := b.config.FeeRate
	if b.config.WaiveLiquidationFee {
		fee = decimal.Zero
	}

	trade, err := b.portfolio.Close(price, fee, lastBar.Time, types.ExitReasonLiquidation)
	if err != nil {
		// a short opened on the last bar can sit beyond its collateral
		marginCall, _ := b.portfolio.MarginCallPrice(b.config.FeeRate)
		trade, err = b.portfolio.Close(marginCall, fee, lastBar.Time, types.ExitReasonMarginCall)
	}

	if err != nil {
		log.Warn("Failed to liquidate open position", zap.Error(err))

		return
	}

	b.events = append(b.events, types.Event{
		BarIndex: lastIndex,
		Time:     lastBar.Time,
		Kind:     types.EventKindLiquidation,
		Message:  fmt.Sprintf("%s position liquidated at %v with pnl %v", trade.Side, trade.ExitPrice, trade.PnL),
	})
	b.portfolio.RestateLast(price)

	log.Debug("Liquidated open position at end of run",
		zap.Float64("price", trade.ExitPrice),
		zap.Float64("pnl", trade.PnL),
	)
}

func exitEventKind(reason types.ExitReason) types.EventKind {
	switch reason {
	case types.ExitReasonStopLoss:
		return types.EventKindStopLoss
	case types.ExitReasonTakeProfit:
		return types.EventKindTakeProfit
	case types.ExitReasonMarginCall:
		return types.EventKindMarginCall
	default:
		return types.EventKindLiquidation
	}
}
