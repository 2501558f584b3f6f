package engine

import (
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
)

// cloneFeedingWindow builds the per-tick window: for every symbol and
// timeframe, a fresh copy of the inclusive candle range
// [max(StartIndex, Index-WarmupCandlesCount), Index]. The copy aliases
// nothing - neither the source history nor prior ticks' windows - so the
// strategy may keep or mutate it freely.
func (e *ReplayEngineV1) cloneFeedingWindow(part types.Part) []types.SymbolData {
	window := make([]types.SymbolData, len(part))

	e.forEachSymbol(part, func(si int) {
		window[si] = e.cloneSymbolWindow(&part[si])
	})

	return window
}

func (e *ReplayEngineV1) cloneSymbolWindow(source *types.SymbolData) types.SymbolData {
	timeframes := make([]types.Timeframe, len(source.Timeframes))

	for ti := range source.Timeframes {
		timeframe := &source.Timeframes[ti]

		lo := timeframe.Index - e.config.WarmupCandlesCount
		if lo < timeframe.StartIndex {
			lo = timeframe.StartIndex
		}

		candles := types.CloneRange(timeframe.Candlesticks, lo, timeframe.Index)

		// the current candle sits at the end in ascending order, at the
		// front in descending order
		index := len(candles) - 1
		if e.config.SortDescending {
			types.Reverse(candles)

			index = 0
		}

		timeframes[ti] = types.Timeframe{
			Interval:     timeframe.Interval,
			StartIndex:   0,
			Index:        index,
			EndIndex:     len(candles) - 1,
			Exhausted:    timeframe.Exhausted,
			Candlesticks: candles,
		}
	}

	return types.SymbolData{
		Symbol:     source.Symbol,
		Timeframes: timeframes,
	}
}

// maskCurrentCandles applies the anti-look-ahead mask to every symbol of
// the window. The source part is consulted read-only for the lowest
// timeframe's constituents of partially formed higher bars.
func (e *ReplayEngineV1) maskCurrentCandles(part types.Part, window []types.SymbolData) {
	e.forEachSymbol(part, func(si int) {
		maskSymbolWindow(&part[si], &window[si])
	})
}

// maskSymbolWindow collapses the lowest timeframe's still-forming candle to
// its open price and reconciles every higher timeframe's current candle
// with it:
//
//   - a higher candle that closed in a prior lowest-timeframe tick (close
//     time equal to the lowest candle's original close, open time
//     different) is final and stays untouched;
//   - otherwise its close, close time, high and low are replaced with the
//     lowest timeframe's masked open-equivalent values;
//   - when the lowest candle sits strictly inside the higher candle's span,
//     high and low are recomputed as the running max/min over the closed
//     lowest-timeframe constituents of that span, reproducing exactly what
//     a live feed would show at this instant.
func maskSymbolWindow(source *types.SymbolData, window *types.SymbolData) {
	lowest := &window.Timeframes[0]
	current := &lowest.Candlesticks[lowest.Index]

	originalLowClose := current.CloseTime
	lowOpenTime := current.OpenTime
	maskedOpen := current.Open

	current.High = maskedOpen
	current.Low = maskedOpen
	current.Close = maskedOpen
	current.CloseTime = current.OpenTime

	for ti := 1; ti < len(window.Timeframes); ti++ {
		timeframe := &window.Timeframes[ti]
		higher := &timeframe.Candlesticks[timeframe.Index]

		if higher.CloseTime.Equal(originalLowClose) && !higher.OpenTime.Equal(lowOpenTime) {
			// closed in a prior lowest-timeframe tick, already final
			continue
		}

		spanOpen := higher.OpenTime
		spanClose := higher.CloseTime

		higher.Close = maskedOpen
		higher.CloseTime = lowOpenTime
		higher.High = maskedOpen
		higher.Low = maskedOpen

		if lowOpenTime.After(spanOpen) && lowOpenTime.Before(spanClose) {
			high, low := consolidateSpan(source.LowestTimeframe(), spanOpen, spanClose, maskedOpen)
			higher.High = high
			higher.Low = low
		}
	}
}

// consolidateSpan computes the running high/low of a partially formed
// higher-timeframe bar from its closed lowest-timeframe constituents plus
// the masked open of the still-forming one.
func consolidateSpan(lowest *types.Timeframe, spanOpen, spanClose time.Time, maskedOpen decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	high := maskedOpen
	low := maskedOpen

	start := types.SearchOpenTimeAtOrAfter(lowest.Candlesticks, spanOpen)

	for ci := start; ci < lowest.Index; ci++ {
		candle := &lowest.Candlesticks[ci]

		if !candle.OpenTime.Before(spanClose) {
			break
		}

		if candle.High.GreaterThan(high) {
			high = candle.High
		}

		if candle.Low.LessThan(low) {
			low = candle.Low
		}
	}

	return high, low
}
