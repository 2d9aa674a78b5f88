package strategy

import (
	"math/rand"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Strategy is the capability set the engine drives once per bar.
//
// OnBar must depend only on its arguments and on state fixed at construction,
// so that a run is reproducible. history ends with the current bar. Returning
// optional.None means no intent for this bar.
type Strategy interface {
	Name() string
	DeclareDataRequirements() []types.DataRequirement
	OnBar(history []types.Bar, indicators indicator.Values, view types.PortfolioView) (optional.Option[types.Signal], error)
}

// New builds the compiled strategy named by cfg. rng is the run's private
// random source and is only kept by strategies that draw from it.
func New(cfg types.StrategyConfig, rng *rand.Rand) (Strategy, error) {
	sizing, err := newSizing(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Type {
	case types.StrategyTypeMomentum:
		return NewMomentum(sizing), nil
	case types.StrategyTypeSMACrossover:
		return NewSMACrossover(cfg.FastPeriod, cfg.SlowPeriod, sizing)
	case types.StrategyTypeRSIReversion:
		return NewRSIReversion(cfg.Period, cfg.LowerThreshold, cfg.UpperThreshold, sizing)
	case types.StrategyTypeMACDCrossover:
		return NewMACDCrossover(cfg.FastPeriod, cfg.SlowPeriod, cfg.SignalPeriod, sizing)
	case types.StrategyTypeBollingerReversion:
		return NewBollingerReversion(cfg.Period, cfg.StdDev, sizing)
	case types.StrategyTypeRandomEntry:
		return NewRandomEntry(cfg.EntryProbability, rng, sizing)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy type %q", cfg.Type)
	}
}

// Sizing turns a directional intent into a concrete signal using the configured
// order size and protective levels.
type Sizing struct {
	Quantity      float64
	Fraction      float64
	StopLossPct   float64
	TakeProfitPct float64
}

func newSizing(cfg types.StrategyConfig) (Sizing, error) {
	if cfg.Quantity < 0 {
		return Sizing{}, errors.Newf(errors.ErrCodeStrategyConfigError, "quantity must not be negative, got %v", cfg.Quantity)
	}

	if cfg.Fraction < 0 || cfg.Fraction > 1 {
		return Sizing{}, errors.Newf(errors.ErrCodeStrategyConfigError, "fraction must be in [0, 1], got %v", cfg.Fraction)
	}

	if cfg.StopLossPct < 0 || cfg.StopLossPct >= 1 {
		return Sizing{}, errors.Newf(errors.ErrCodeStrategyConfigError, "stop_loss_pct must be in [0, 1), got %v", cfg.StopLossPct)
	}

	if cfg.TakeProfitPct < 0 {
		return Sizing{}, errors.Newf(errors.ErrCodeStrategyConfigError, "take_profit_pct must not be negative, got %v", cfg.TakeProfitPct)
	}

	fraction := cfg.Fraction
	if fraction == 0 {
		fraction = 1
	}

	return Sizing{
		Quantity:      cfg.Quantity,
		Fraction:      fraction,
		StopLossPct:   cfg.StopLossPct,
		TakeProfitPct: cfg.TakeProfitPct,
	}, nil
}

// Bullish returns the signal for a bullish reading given the current position:
// an entry when flat, an exit when short, and nothing when already long.
func (s Sizing) Bullish(view types.PortfolioView, price float64, reason string) optional.Option[types.Signal] {
	switch view.Side {
	case types.PositionSideLong:
		return optional.None[types.Signal]()
	case types.PositionSideShort:
		return optional.Some(types.Signal{Type: types.SignalTypeBuy, Reason: reason})
	default:
		return optional.Some(s.entry(types.SignalTypeBuy, price, reason))
	}
}

// Bearish mirrors Bullish: exit a long, or propose a short entry when flat.
func (s Sizing) Bearish(view types.PortfolioView, price float64, reason string) optional.Option[types.Signal] {
	switch view.Side {
	case types.PositionSideShort:
		return optional.None[types.Signal]()
	case types.PositionSideLong:
		return optional.Some(types.Signal{Type: types.SignalTypeSell, Reason: reason})
	default:
		return optional.Some(s.entry(types.SignalTypeSell, price, reason))
	}
}

func (s Sizing) entry(signalType types.SignalType, price float64, reason string) types.Signal {
	signal := types.Signal{Type: signalType, Reason: reason}

	if s.Quantity > 0 {
		signal.Quantity = optional.Some(s.Quantity)
	} else {
		signal.Fraction = optional.Some(s.Fraction)
	}

	direction := 1.0
	if signalType == types.SignalTypeSell {
		direction = -1.0
	}

	if s.StopLossPct > 0 {
		signal.StopLoss = optional.Some(price * (1 - direction*s.StopLossPct))
	}

	if s.TakeProfitPct > 0 {
		signal.TakeProfit = optional.Some(price * (1 + direction*s.TakeProfitPct))
	}

	return signal
}

func last(history []types.Bar) types.Bar {
	return history[len(history)-1]
}
