package indicator

import (
	"slices"
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// IndicatorRegistry manages the indicators available to one run.
type IndicatorRegistry interface {
	RegisterIndicator(indicator Indicator) error
	GetIndicator(name types.IndicatorType) (Indicator, error)
	ListIndicators() []types.IndicatorType
	RemoveIndicator(name types.IndicatorType) error
}

// IndicatorRegistryV1 is a map-backed IndicatorRegistry.
type IndicatorRegistryV1 struct {
	indicators map[types.IndicatorType]Indicator
	mu         sync.RWMutex
}

// NewIndicatorRegistry creates an empty indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		indicators: make(map[types.IndicatorType]Indicator),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry holding every built-in indicator.
// Each call returns a fresh instance.
func NewDefaultRegistry() IndicatorRegistry {
	registry := NewIndicatorRegistry()

	for _, ind := range []Indicator{NewHistory(), NewMA(), NewEMA(), NewRSI(), NewMACD(), NewBollingerBands()} {
		// names are distinct, registration cannot fail
		_ = registry.RegisterIndicator(ind)
	}

	return registry
}

// RegisterIndicator adds an indicator to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := indicator.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator with name %s already registered", name)
	}

	r.indicators[name] = indicator

	return nil
}

// GetIndicator retrieves an indicator by name.
func (r *IndicatorRegistryV1) GetIndicator(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	return indicator, nil
}

// ListIndicators returns the registered indicator names in sorted order.
func (r *IndicatorRegistryV1) ListIndicators() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	return nil
}

// ValidateRequirements checks every requirement against its indicator and
// returns the largest lookback among them. Duplicate keys are rejected.
func ValidateRequirements(registry IndicatorRegistry, reqs []types.DataRequirement) (int, error) {
	longest := 0
	seen := make(map[string]struct{}, len(reqs))

	for _, req := range reqs {
		if req.Key == "" {
			return 0, errors.Newf(errors.ErrCodeInvalidParameter, "requirement for %s has no key", req.Indicator)
		}

		if _, dup := seen[req.Key]; dup {
			return 0, errors.Newf(errors.ErrCodeInvalidParameter, "duplicate requirement key %q", req.Key)
		}

		seen[req.Key] = struct{}{}

		ind, err := registry.GetIndicator(req.Indicator)
		if err != nil {
			return 0, err
		}

		if err := ind.Validate(req); err != nil {
			return 0, err
		}

		longest = max(longest, ind.Lookback(req))
	}

	return longest, nil
}

// Compute evaluates every requirement over bars. Requirements whose lookback is
// longer than the window are left out of the result.
func Compute(registry IndicatorRegistry, reqs []types.DataRequirement, bars []types.Bar) (Values, error) {
	values := make(Values, len(reqs))

	for _, req := range reqs {
		ind, err := registry.GetIndicator(req.Indicator)
		if err != nil {
			return nil, err
		}

		if len(bars) < ind.Lookback(req) {
			continue
		}

		value, err := ind.Compute(req, bars)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to compute %s", req.Key)
		}

		values[req.Key] = value
	}

	return values, nil
}
