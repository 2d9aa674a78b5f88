package datasource

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// ValidateSeries checks that bars are strictly ascending by time and that
// every bar is well formed. It never repairs the series.
func ValidateSeries(bars []types.Bar) error {
	for i, bar := range bars {
		if err := bar.Validate(); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidBarSeries, err, "bar %d at %s is malformed", i, bar.Time.Format(time.RFC3339))
		}

		if i > 0 && !bar.Time.After(bars[i-1].Time) {
			return errors.Newf(errors.ErrCodeInvalidBarSeries, "bar %d at %s does not follow bar %d at %s",
				i, bar.Time.Format(time.RFC3339), i-1, bars[i-1].Time.Format(time.RFC3339))
		}
	}

	return nil
}
