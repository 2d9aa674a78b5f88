package portfolio

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// QuantityPrecision is the number of decimal places sizing truncates to.
const QuantityPrecision = 8

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

type position struct {
	side       types.PositionSide
	quantity   decimal.Decimal
	entryPrice decimal.Decimal
	entryFee   decimal.Decimal
	entryTime  time.Time
	stopLoss   optional.Option[float64]
	takeProfit optional.Option[float64]
}

// Portfolio tracks cash, at most one open position, the trade ledger and the
// equity curve for a single run. It moves Flat -> Long|Short -> Flat.
//
// A long debits quantity*price*(1+fee) on open and credits
// quantity*exit*(1-fee) on close. A short is fully collateralized: opening
// debits quantity*price*(1+fee) and closing credits
// quantity*(2*entry-exit) - quantity*exit*fee.
type Portfolio struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	peak           decimal.Decimal
	pos            position
	trades         []types.Trade
	curve          []types.PortfolioSnapshot
}

// New creates a flat portfolio holding initialCapital in cash.
func New(initialCapital decimal.Decimal) *Portfolio {
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		peak:           initialCapital,
		pos:            position{side: types.PositionSideFlat},
	}
}

// Side returns the current position side.
func (p *Portfolio) Side() types.PositionSide {
	return p.pos.side
}

// IsFlat reports whether no position is open.
func (p *Portfolio) IsFlat() bool {
	return p.pos.side == types.PositionSideFlat
}

// Cash returns the cash balance.
func (p *Portfolio) Cash() decimal.Decimal {
	return p.cash
}

// Quantity returns the open position size, or zero when flat.
func (p *Portfolio) Quantity() decimal.Decimal {
	return p.pos.quantity
}

// EntryPrice returns the open position's entry price, or zero when flat.
func (p *Portfolio) EntryPrice() decimal.Decimal {
	return p.pos.entryPrice
}

// PositionValue is what the open position contributes to equity at price.
func (p *Portfolio) PositionValue(price decimal.Decimal) decimal.Decimal {
	switch p.pos.side {
	case types.PositionSideLong:
		return p.pos.quantity.Mul(price)
	case types.PositionSideShort:
		return p.pos.quantity.Mul(two.Mul(p.pos.entryPrice).Sub(price))
	default:
		return decimal.Zero
	}
}

// Equity returns cash plus the position value at price.
func (p *Portfolio) Equity(price decimal.Decimal) decimal.Decimal {
	return p.cash.Add(p.PositionValue(price))
}

// View returns the read-only state handed to strategies.
func (p *Portfolio) View(price decimal.Decimal) types.PortfolioView {
	return types.PortfolioView{
		Side:       p.pos.side,
		Quantity:   p.pos.quantity.InexactFloat64(),
		EntryPrice: p.pos.entryPrice.InexactFloat64(),
		Cash:       p.cash.InexactFloat64(),
		Equity:     p.Equity(price).InexactFloat64(),
	}
}

// MaxAffordableQuantity returns the largest quantity whose total cost, fee
// included, fits in fraction of the available cash. The result is truncated to
// QuantityPrecision places so the cost never exceeds the budget.
func (p *Portfolio) MaxAffordableQuantity(price, feeRate, fraction decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() || !fraction.IsPositive() || !p.cash.IsPositive() {
		return decimal.Zero
	}

	budget := p.cash.Mul(fraction)
	unitCost := price.Mul(one.Add(feeRate))

	return budget.Div(unitCost).Truncate(QuantityPrecision)
}

// Open enters a position of quantity units at price. It fails with
// ErrCodePositionExists when a position is already open, ErrCodeInvalidSignal
// for non-positive inputs and ErrCodeInsufficientCash when cash would go negative.
func (p *Portfolio) Open(side types.PositionSide, price, quantity, feeRate decimal.Decimal, at time.Time) error {
	if p.pos.side != types.PositionSideFlat {
		return errors.Newf(errors.ErrCodePositionExists, "cannot open %s position while %s", side, p.pos.side)
	}

	if side != types.PositionSideLong && side != types.PositionSideShort {
		return errors.Newf(errors.ErrCodeInvalidSignal, "cannot open position with side %q", side)
	}

	if !price.IsPositive() || !quantity.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidSignal, "price and quantity must be positive, got %s and %s", price, quantity)
	}

	notional := quantity.Mul(price)
	fee := notional.Mul(feeRate)
	cost := notional.Add(fee)

	if cost.GreaterThan(p.cash) {
		return errors.Newf(errors.ErrCodeInsufficientCash, "opening %s %s at %s costs %s but only %s cash is available",
			quantity, side, price, cost.StringFixed(8), p.cash.StringFixed(8))
	}

	p.cash = p.cash.Sub(cost)
	p.pos = position{
		side:       side,
		quantity:   quantity,
		entryPrice: price,
		entryFee:   fee,
		entryTime:  at,
	}

	return nil
}

// SetProtection attaches stop-loss and take-profit levels to the open position.
func (p *Portfolio) SetProtection(stopLoss, takeProfit optional.Option[float64]) {
	if p.IsFlat() {
		return
	}

	p.pos.stopLoss = stopLoss
	p.pos.takeProfit = takeProfit
}

// Protection returns the stop-loss and take-profit levels of the open position.
func (p *Portfolio) Protection() (optional.Option[float64], optional.Option[float64]) {
	return p.pos.stopLoss, p.pos.takeProfit
}

// MarginCallPrice is the price at which closing an open short would consume
// all of its collateral, rounded down so a close there never overdraws cash.
// It returns false unless a short is open.
func (p *Portfolio) MarginCallPrice(feeRate decimal.Decimal) (decimal.Decimal, bool) {
	if p.pos.side != types.PositionSideShort {
		return decimal.Zero, false
	}

	return two.Mul(p.pos.entryPrice).Div(one.Add(feeRate)).RoundFloor(QuantityPrecision), true
}

// Close exits the open position at price, appends the realized Trade and
// returns it.
func (p *Portfolio) Close(price, feeRate decimal.Decimal, at time.Time, reason types.ExitReason) (types.Trade, error) {
	if p.pos.side == types.PositionSideFlat {
		return types.Trade{}, errors.New(errors.ErrCodePositionNotFound, "no open position to close")
	}

	if !price.IsPositive() {
		return types.Trade{}, errors.Newf(errors.ErrCodeInvalidSignal, "exit price must be positive, got %s", price)
	}

	qty := p.pos.quantity
	exitFee := qty.Mul(price).Mul(feeRate)

	var gross, credit decimal.Decimal

	if p.pos.side == types.PositionSideLong {
		gross = price.Sub(p.pos.entryPrice).Mul(qty)
		credit = qty.Mul(price).Sub(exitFee)
	} else {
		gross = p.pos.entryPrice.Sub(price).Mul(qty)
		credit = qty.Mul(two.Mul(p.pos.entryPrice).Sub(price)).Sub(exitFee)
	}

	if p.cash.Add(credit).IsNegative() {
		return types.Trade{}, errors.Newf(errors.ErrCodeInsufficientCash, "closing %s at %s would leave negative cash", p.pos.side, price)
	}

	fees := p.pos.entryFee.Add(exitFee)
	trade := types.Trade{
		Side:       p.pos.side,
		EntryTime:  p.pos.entryTime,
		EntryPrice: p.pos.entryPrice.InexactFloat64(),
		ExitTime:   at,
		ExitPrice:  price.InexactFloat64(),
		Quantity:   qty.InexactFloat64(),
		Fee:        fees.InexactFloat64(),
		PnL:        gross.Sub(fees).InexactFloat64(),
		ExitReason: reason,
	}

	p.cash = p.cash.Add(credit)
	p.pos = position{side: types.PositionSideFlat}
	p.trades = append(p.trades, trade)

	return trade, nil
}

// MarkToMarket values the portfolio at price and appends the snapshot to the
// equity curve.
func (p *Portfolio) MarkToMarket(price decimal.Decimal, at time.Time) types.PortfolioSnapshot {
	snapshot := p.snapshot(price, at)
	p.curve = append(p.curve, snapshot)

	return snapshot
}

// RestateLast replaces the most recent snapshot with a fresh valuation. It is
// used after an end-of-run liquidation so the curve ends on realized equity.
func (p *Portfolio) RestateLast(price decimal.Decimal) {
	if len(p.curve) == 0 {
		return
	}

	last := len(p.curve) - 1
	p.curve[last] = p.snapshot(price, p.curve[last].Time)
}

func (p *Portfolio) snapshot(price decimal.Decimal, at time.Time) types.PortfolioSnapshot {
	positionValue := p.PositionValue(price)
	equity := p.cash.Add(positionValue)

	if equity.GreaterThan(p.peak) {
		p.peak = equity
	}

	drawdown := decimal.Zero
	if p.peak.IsPositive() {
		drawdown = p.peak.Sub(equity).Div(p.peak)
	}

	return types.PortfolioSnapshot{
		Time:          at,
		Cash:          p.cash.InexactFloat64(),
		PositionValue: positionValue.InexactFloat64(),
		Equity:        equity.InexactFloat64(),
		Drawdown:      drawdown.InexactFloat64(),
	}
}

// Trades returns a copy of the trade ledger.
func (p *Portfolio) Trades() []types.Trade {
	return append([]types.Trade(nil), p.trades...)
}

// EquityCurve returns a copy of the equity curve.
func (p *Portfolio) EquityCurve() []types.PortfolioSnapshot {
	return append([]types.PortfolioSnapshot(nil), p.curve...)
}

// InitialCapital returns the starting cash.
func (p *Portfolio) InitialCapital() decimal.Decimal {
	return p.initialCapital
}
