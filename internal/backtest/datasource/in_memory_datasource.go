package datasource

import (
	"context"
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// InMemoryBarSource serves bars held in memory, keyed by series.
type InMemoryBarSource struct {
	mu     sync.RWMutex
	series map[string][]types.Bar
}

func NewInMemoryBarSource() *InMemoryBarSource {
	return &InMemoryBarSource{series: make(map[string][]types.Bar)}
}

// Put replaces the stored bars of the series named by req. Bars are kept
// sorted by time.
func (m *InMemoryBarSource) Put(req BarRequest, bars []types.Bar) {
	stored := make([]types.Bar, len(bars))
	copy(stored, bars)
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Time.Before(stored[j].Time) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.series[req.SeriesKey()] = stored
}

// FetchBars implements BarSource. The result is a copy.
func (m *InMemoryBarSource) FetchBars(ctx context.Context, req BarRequest) ([]types.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []types.Bar

	for _, bar := range m.series[req.SeriesKey()] {
		if bar.Time.Before(req.Start) || bar.Time.After(req.End) {
			continue
		}

		result = append(result, bar)
	}

	return result, nil
}
