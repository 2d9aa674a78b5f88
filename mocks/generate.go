package mocks

//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/strategy Strategy
//go:generate mockgen -destination=./mock_bar_source.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/datasource BarSource
