package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BarTestSuite struct {
	suite.Suite
}

func TestBarSuite(t *testing.T) {
	suite.Run(t, new(BarTestSuite))
}

func (suite *BarTestSuite) TestValidBar() {
	bar := Bar{Time: time.Now(), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100}
	suite.NoError(bar.Validate())
}

func (suite *BarTestSuite) TestInvalidBars() {
	now := time.Now()
	tests := []struct {
		name string
		bar  Bar
	}{
		{"missing time", Bar{Open: 10, High: 12, Low: 9, Close: 11}},
		{"high below close", Bar{Time: now, Open: 10, High: 10.5, Low: 9, Close: 11}},
		{"low above open", Bar{Time: now, Open: 10, High: 12, Low: 10.5, Close: 11}},
		{"negative volume", Bar{Time: now, Open: 10, High: 12, Low: 9, Close: 11, Volume: -1}},
		{"zero low", Bar{Time: now, Open: 10, High: 12, Low: 0, Close: 11}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Error(tc.bar.Validate())
		})
	}
}

func (suite *BarTestSuite) TestTimeframeDuration() {
	suite.Equal(time.Minute, Timeframe1m.Duration())
	suite.Equal(4*time.Hour, Timeframe4h.Duration())
	suite.Equal(7*24*time.Hour, Timeframe1w.Duration())
	suite.Equal(time.Duration(0), Timeframe("3d").Duration())
}

func (suite *BarTestSuite) TestCloses() {
	bars := []Bar{{Close: 1}, {Close: 2}, {Close: 3}}
	suite.Equal([]float64{1, 2, 3}, Closes(bars))
}
