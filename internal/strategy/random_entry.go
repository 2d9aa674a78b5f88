package strategy

import (
	"math/rand"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// RandomEntry is a coin-flip baseline: each bar it enters or exits with a fixed
// probability drawn from the run's private random source.
type RandomEntry struct {
	probability float64
	rng         *rand.Rand
	sizing      Sizing
}

func NewRandomEntry(probability float64, rng *rand.Rand, sizing Sizing) (Strategy, error) {
	if rng == nil {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "random_entry requires a random source")
	}

	if probability == 0 {
		probability = 0.1
	}

	if probability < 0 || probability > 1 {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "entry_probability must be in (0, 1], got %v", probability)
	}

	return &RandomEntry{probability: probability, rng: rng, sizing: sizing}, nil
}

func (r *RandomEntry) Name() string {
	return string(types.StrategyTypeRandomEntry)
}

func (r *RandomEntry) DeclareDataRequirements() []types.DataRequirement {
	return nil
}

func (r *RandomEntry) OnBar(history []types.Bar, _ indicator.Values, view types.PortfolioView) (optional.Option[types.Signal], error) {
	// one draw per bar keeps the sequence aligned with bar order
	draw := r.rng.Float64()
	if draw >= r.probability {
		return optional.None[types.Signal](), nil
	}

	price := last(history).Close

	if view.IsFlat() {
		return r.sizing.Bullish(view, price, "random entry"), nil
	}

	return optional.Some(types.Signal{Type: exitType(view.Side), Reason: "random exit"}), nil
}

func exitType(side types.PositionSide) types.SignalType {
	if side == types.PositionSideShort {
		return types.SignalTypeBuy
	}

	return types.SignalTypeSell
}
