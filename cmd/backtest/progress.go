package main

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/schollz/progressbar/v3"
)

// progress drives a terminal progress bar from engine lifecycle callbacks.
type progress struct {
	strategy types.StrategyType
	bar      *progressbar.ProgressBar
}

func newProgress(strategy types.StrategyType) *progress {
	return &progress{strategy: strategy}
}

func (p *progress) callbacks() engine.LifecycleCallbacks {
	onStart := engine.OnRunStartCallback(func(backtestID string, totalBars int) error {
		p.bar = progressbar.NewOptions(totalBars,
			progressbar.OptionSetDescription(fmt.Sprintf("Backtesting %s", p.strategy)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		return nil
	})

	onBar := engine.OnProcessBarCallback(func(current, _ int) error {
		if p.bar == nil {
			return nil
		}

		return p.bar.Set(current)
	})

	return engine.LifecycleCallbacks{
		OnRunStart:   &onStart,
		OnProcessBar: &onBar,
	}
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
