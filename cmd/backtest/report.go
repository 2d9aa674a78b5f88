package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true)
	LabelStyle = lipgloss.NewStyle().Faint(true).Width(24)
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	BoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// renderReport formats a result for the terminal.
func renderReport(result types.BacktestResult) string {
	header := TitleStyle.Render(fmt.Sprintf("%s  %s %s %s", result.Strategy, result.Exchange, result.Symbol, result.Timeframe))

	if result.Error.IsSome() {
		body := lipgloss.JoinVertical(lipgloss.Left,
			header,
			row("Status", string(result.Status)),
			ErrorStyle.Render(result.Error.Unwrap()),
		)

		return BoxStyle.Render(body)
	}

	p := result.Performance

	lines := []string{
		header,
		row("Backtest ID", result.BacktestID),
		row("Status", string(result.Status)),
		row("Bars", fmt.Sprintf("%d processed, %d skipped, %d signals ignored", result.BarsProcessed, result.SkippedBars, result.IgnoredSignals)),
		"",
		row("Final equity", fmt.Sprintf("%.2f", p.FinalEquity)),
		row("Total return", percent(p.TotalReturn)),
		row("Annualized return", percent(p.AnnualizedReturn)),
		row("Volatility", percent(p.Volatility)),
		row("Sharpe / Sortino", fmt.Sprintf("%.3f / %.3f", p.SharpeRatio, p.SortinoRatio)),
		row("Calmar", fmt.Sprintf("%.3f", p.CalmarRatio)),
		row("Max drawdown", fmt.Sprintf("%s over %d bars", percent(p.MaxDrawdown), p.MaxDrawdownDuration)),
		row("VaR / CVaR 95", fmt.Sprintf("%s / %s", percent(p.VaR95), percent(p.CVaR95))),
		row("VaR / CVaR 99", fmt.Sprintf("%s / %s", percent(p.VaR99), percent(p.CVaR99))),
		"",
		row("Trades", fmt.Sprintf("%d (%d won, %d lost)", p.TotalTrades, p.WinningTrades, p.LosingTrades)),
		row("Win rate", percent(p.WinRate)),
		row("Profit factor", fmt.Sprintf("%.3f", p.ProfitFactor)),
		row("Total fees", fmt.Sprintf("%.4f", p.TotalFees)),
		row("Execution time", fmt.Sprintf("%d ms", result.ExecutionTimeMs)),
	}

	if len(p.GuardedMetrics) > 0 {
		lines = append(lines, row("Undefined metrics", strings.Join(p.GuardedMetrics, ", ")))
	}

	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
