// Package analyzer turns the trade ledger and equity curve of a finished run
// into a PerformanceReport.
//
// Analyze is a pure function. Every sum is a left-to-right loop over the input
// in timestamp order so identical inputs give bit-identical reports.
package analyzer

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// Analyze computes the full metrics report. periodsPerYear annualizes the
// per-bar statistics and falls back to types.DefaultPeriodsPerYear when not positive.
func Analyze(trades []types.Trade, curve []types.PortfolioSnapshot, initialCapital decimal.Decimal, periodsPerYear int) types.PerformanceReport {
	if periodsPerYear <= 0 {
		periodsPerYear = types.DefaultPeriodsPerYear
	}

	g := &guard{}
	initial := initialCapital.InexactFloat64()
	n := float64(periodsPerYear)
	sqrtN := math.Sqrt(n)

	final := initial
	if len(curve) > 0 {
		final = curve[len(curve)-1].Equity
	}

	report := types.PerformanceReport{
		InitialCapital: initial,
		FinalEquity:    final,
	}

	report.TotalReturn = g.div("total_return", final-initial, initial)

	returns := periodReturns(curve, initial, g)
	report.Periods = len(returns)
	report.AnnualizedReturn = g.finite("annualized_return", annualize(report.TotalReturn, n, len(returns)))

	mean := Mean(returns)
	sd := StdDev(returns)
	downside := StdDev(negatives(returns))

	report.Volatility = g.finite("volatility", sd*sqrtN)
	report.DownsideDeviation = g.finite("downside_deviation", downside*sqrtN)
	report.SharpeRatio = g.div("sharpe_ratio", mean*sqrtN, sd)
	report.SortinoRatio = g.div("sortino_ratio", mean*sqrtN, downside)

	report.MaxDrawdown, report.MaxDrawdownDuration = MaxDrawdown(curve, initial)
	report.MaxDrawdown = g.finite("max_drawdown", report.MaxDrawdown)
	report.CalmarRatio = g.div("calmar_ratio", report.AnnualizedReturn, math.Abs(report.MaxDrawdown))

	var95, cvar95 := ValueAtRisk(returns, 5)
	var99, cvar99 := ValueAtRisk(returns, 1)
	report.VaR95 = g.finite("var_95", var95)
	report.CVaR95 = g.finite("cvar_95", cvar95)
	report.VaR99 = g.finite("var_99", var99)
	report.CVaR99 = g.finite("cvar_99", cvar99)

	skew, kurt := Moments(returns)
	report.Skewness = g.finite("skewness", skew)
	report.Kurtosis = g.finite("kurtosis", kurt)

	tradeStats(&report, trades, g)
	report.Exposure = g.finite("exposure", exposure(curve))

	report.GuardedMetrics = g.names

	return report
}

// guard replaces undefined values with 0 and remembers which metrics it touched.
// 0/0 is reported as a plain 0 and is not recorded.
type guard struct {
	names []string
}

func (g *guard) div(name string, num, den float64) float64 {
	if den == 0 {
		if num != 0 {
			g.names = append(g.names, name)
		}

		return 0
	}

	return g.finite(name, num/den)
}

func (g *guard) finite(name string, v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		g.names = append(g.names, name)

		return 0
	}

	return v
}

// periodReturns returns the per-bar simple returns of the curve. The first
// return is measured against the initial capital.
func periodReturns(curve []types.PortfolioSnapshot, initial float64, g *guard) []float64 {
	returns := make([]float64, 0, len(curve))
	prev := initial
	zeroBase := false

	for _, snapshot := range curve {
		if prev == 0 {
			zeroBase = true

			returns = append(returns, 0)
		} else {
			returns = append(returns, (snapshot.Equity-prev)/prev)
		}

		prev = snapshot.Equity
	}

	if zeroBase {
		g.names = append(g.names, "returns")
	}

	return returns
}

func annualize(totalReturn, periodsPerYear float64, periods int) float64 {
	if periods == 0 {
		return 0
	}

	base := 1 + totalReturn
	if base <= 0 {
		return -1
	}

	return math.Pow(base, periodsPerYear/float64(periods)) - 1
}

func negatives(values []float64) []float64 {
	var out []float64

	for _, v := range values {
		if v < 0 {
			out = append(out, v)
		}
	}

	return out
}

func exposure(curve []types.PortfolioSnapshot) float64 {
	if len(curve) == 0 {
		return 0
	}

	held := 0

	for _, snapshot := range curve {
		if snapshot.PositionValue != 0 {
			held++
		}
	}

	return float64(held) / float64(len(curve))
}
