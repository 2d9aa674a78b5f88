package analyzer

import (
	"math"
	"slices"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// StdDev returns the sample standard deviation (n-1), or 0 for fewer than two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := Mean(values)
	sum := 0.0

	for _, v := range values {
		d := v - mean
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(values)-1))
}

// Percentile returns the p-th percentile (0-100) using linear interpolation
// between closest ranks of an ascending sorted copy.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// ValueAtRisk returns the historical VaR and CVaR at the given tail percentile
// (5 for 95% confidence). Both are reported as non-negative losses.
func ValueAtRisk(returns []float64, tail float64) (float64, float64) {
	if len(returns) == 0 {
		return 0, 0
	}

	cutoff := Percentile(returns, tail)

	var losses []float64

	for _, r := range returns {
		if r <= cutoff {
			losses = append(losses, r)
		}
	}

	return math.Max(0, -cutoff), math.Max(0, -Mean(losses))
}

// MaxDrawdown returns the largest peak-to-trough decline as a fraction of the
// peak, and the longest run of consecutive bars spent below a prior peak. The
// peak starts at the initial capital.
func MaxDrawdown(curve []types.PortfolioSnapshot, initial float64) (float64, int) {
	peak := initial
	maxDD := 0.0
	run, longest := 0, 0

	for _, snapshot := range curve {
		if snapshot.Equity >= peak {
			peak = snapshot.Equity
			run = 0

			continue
		}

		run++
		longest = max(longest, run)

		if peak > 0 {
			maxDD = math.Max(maxDD, (peak-snapshot.Equity)/peak)
		}
	}

	return maxDD, longest
}

// Moments returns the skewness and the (non-excess) kurtosis of values using
// population central moments. Both are 0 when the variance is 0.
func Moments(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	mean := Mean(values)

	var m2, m3, m4 float64

	for _, v := range values {
		d := v - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}

	count := float64(len(values))
	m2 /= count
	m3 /= count
	m4 /= count

	if m2 == 0 {
		return 0, 0
	}

	return m3 / math.Pow(m2, 1.5), m4 / (m2 * m2)
}

// tradeStats fills the ledger-derived fields with one ordered pass. A trade
// with zero P&L counts as neither a win nor a loss and ends both streaks.
func tradeStats(report *types.PerformanceReport, trades []types.Trade, g *guard) {
	var grossWin, grossLoss float64

	winStreak, lossStreak := 0, 0

	for _, trade := range trades {
		report.TotalPnL += trade.PnL
		report.TotalFees += trade.Fee

		switch {
		case trade.PnL > 0:
			report.WinningTrades++
			grossWin += trade.PnL
			report.LargestWin = math.Max(report.LargestWin, trade.PnL)
			winStreak++
			lossStreak = 0
		case trade.PnL < 0:
			report.LosingTrades++
			grossLoss += trade.PnL
			report.LargestLoss = math.Min(report.LargestLoss, trade.PnL)
			lossStreak++
			winStreak = 0
		default:
			winStreak, lossStreak = 0, 0
		}

		report.MaxConsecutiveWins = max(report.MaxConsecutiveWins, winStreak)
		report.MaxConsecutiveLosses = max(report.MaxConsecutiveLosses, lossStreak)
	}

	report.TotalTrades = len(trades)
	report.WinRate = g.div("win_rate", float64(report.WinningTrades), float64(report.TotalTrades))
	report.ProfitFactor = g.div("profit_factor", grossWin, math.Abs(grossLoss))
	report.AvgWin = g.div("avg_win", grossWin, float64(report.WinningTrades))
	report.AvgLoss = g.div("avg_loss", grossLoss, float64(report.LosingTrades))
}
