package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CandlestickTestSuite struct {
	suite.Suite
}

func TestCandlestickSuite(t *testing.T) {
	suite.Run(t, new(CandlestickTestSuite))
}

// fiveMinuteCandles builds count contiguous 5-minute candles starting at start.
func fiveMinuteCandles(start time.Time, count int) []Candlestick {
	candles := make([]Candlestick, count)

	for i := range candles {
		openTime := start.Add(time.Duration(i) * 5 * time.Minute)
		candles[i] = Candlestick{
			OpenTime:  openTime,
			CloseTime: openTime.Add(5 * time.Minute),
			Open:      decimal.NewFromInt(100),
			High:      decimal.NewFromInt(101),
			Low:       decimal.NewFromInt(99),
			Close:     decimal.NewFromInt(100),
			Volume:    decimal.NewFromInt(1000),
		}
	}

	return candles
}

func (suite *CandlestickTestSuite) TestSearchOpenTimeAtOrAfter() {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := fiveMinuteCandles(start, 10)

	tests := []struct {
		name     string
		at       time.Time
		expected int
	}{
		{name: "before first", at: start.Add(-time.Hour), expected: 0},
		{name: "exact match", at: start.Add(10 * time.Minute), expected: 2},
		{name: "between candles", at: start.Add(12 * time.Minute), expected: 3},
		{name: "after last", at: start.Add(time.Hour), expected: 10},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, SearchOpenTimeAtOrAfter(candles, tc.at))
		})
	}
}

func (suite *CandlestickTestSuite) TestSearchCloseTimeAtOrAfter() {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := fiveMinuteCandles(start, 10)

	// the first close time is start+5m
	suite.Equal(0, SearchCloseTimeAtOrAfter(candles, start))
	suite.Equal(0, SearchCloseTimeAtOrAfter(candles, start.Add(5*time.Minute)))
	suite.Equal(1, SearchCloseTimeAtOrAfter(candles, start.Add(6*time.Minute)))
	suite.Equal(10, SearchCloseTimeAtOrAfter(candles, start.Add(2*time.Hour)))
}

func (suite *CandlestickTestSuite) TestCloneRangeIsIndependent() {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := fiveMinuteCandles(start, 5)

	clone := CloneRange(candles, 1, 3)
	suite.Len(clone, 3)
	suite.True(clone[0].OpenTime.Equal(candles[1].OpenTime))

	clone[0].Open = decimal.NewFromInt(42)
	suite.True(candles[1].Open.Equal(decimal.NewFromInt(100)), "mutating the clone must not touch the source")
}

func (suite *CandlestickTestSuite) TestReverse() {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := fiveMinuteCandles(start, 4)

	Reverse(candles)

	for i := 1; i < len(candles); i++ {
		suite.True(candles[i].OpenTime.Before(candles[i-1].OpenTime))
	}
}
