package types

import (
	"fmt"

	"github.com/moznion/go-optional"
)

type SignalType string

const (
	// SignalTypeBuy opens a long position, or closes a short one.
	SignalTypeBuy SignalType = "buy"
	// SignalTypeSell closes a long position, or opens a short one when shorts are allowed.
	SignalTypeSell SignalType = "sell"
	// SignalTypeHold takes no action.
	SignalTypeHold SignalType = "hold"
)

// Signal is the trading intent a strategy emits for one bar.
type Signal struct {
	Type SignalType `json:"type"`
	// Price is the requested fill price. Zero fills at the bar close.
	Price float64 `json:"price"`
	// Quantity is an absolute size in units. It wins over Fraction.
	Quantity optional.Option[float64] `json:"quantity"`
	// Fraction is the share of available cash to commit, in (0, 1].
	Fraction   optional.Option[float64] `json:"fraction"`
	StopLoss   optional.Option[float64] `json:"stop_loss"`
	TakeProfit optional.Option[float64] `json:"take_profit"`
	Reason     string                   `json:"reason"`
}

// Validate rejects signals that can never be applied regardless of portfolio state.
func (s Signal) Validate() error {
	switch s.Type {
	case SignalTypeBuy, SignalTypeSell, SignalTypeHold:
	default:
		return fmt.Errorf("unknown signal type %q", s.Type)
	}

	if s.Price < 0 {
		return fmt.Errorf("signal price must not be negative, got %v", s.Price)
	}

	if s.Quantity.IsSome() && s.Quantity.Unwrap() <= 0 {
		return fmt.Errorf("signal quantity must be positive, got %v", s.Quantity.Unwrap())
	}

	if s.Fraction.IsSome() {
		fraction := s.Fraction.Unwrap()
		if fraction <= 0 || fraction > 1 {
			return fmt.Errorf("signal fraction must be in (0, 1], got %v", fraction)
		}
	}

	if s.StopLoss.IsSome() && s.StopLoss.Unwrap() <= 0 {
		return fmt.Errorf("stop loss must be positive, got %v", s.StopLoss.Unwrap())
	}

	if s.TakeProfit.IsSome() && s.TakeProfit.Unwrap() <= 0 {
		return fmt.Errorf("take profit must be positive, got %v", s.TakeProfit.Unwrap())
	}

	return nil
}

// Buy builds a buy signal for a fixed quantity at the bar close.
func Buy(quantity float64, reason string) Signal {
	return Signal{Type: SignalTypeBuy, Quantity: optional.Some(quantity), Reason: reason}
}

// Sell builds a sell signal for a fixed quantity at the bar close.
func Sell(quantity float64, reason string) Signal {
	return Signal{Type: SignalTypeSell, Quantity: optional.Some(quantity), Reason: reason}
}
