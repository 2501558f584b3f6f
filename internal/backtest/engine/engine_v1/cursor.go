package engine

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
)

// advanceCursors moves every symbol's cursors one tick forward and reports
// whether anything advanced. Symbols are independent; the fan-out writes
// only the symbol's own cursor state.
func (e *ReplayEngineV1) advanceCursors(part types.Part) bool {
	advanced := make([]bool, len(part))

	e.forEachSymbol(part, func(si int) {
		advanced[si] = advanceSymbol(&part[si])
	})

	for _, ok := range advanced {
		if ok {
			return true
		}
	}

	return false
}

// advanceSymbol implements the synchronization rule: the first ("base")
// timeframe with candles left moves one step; every timeframe after it in
// the ascending-granularity order rolls forward only once its current
// candle's close time is strictly before the base's new open time, i.e.
// only when its bar has definitively closed. Timeframes before the base
// that are exhausted get pinned to their end index. Position 0 is the
// lowest timeframe by construction; no identity comparison is needed.
func advanceSymbol(symbolData *types.SymbolData) bool {
	timeframes := symbolData.Timeframes
	base := -1

	for ti := range timeframes {
		timeframe := &timeframes[ti]

		if timeframe.Index < timeframe.EndIndex {
			base = ti

			break
		}

		if timeframe.Exhausted {
			timeframe.Index = timeframe.EndIndex
		}
	}

	if base == -1 {
		// nothing left to advance for this symbol
		return false
	}

	baseTimeframe := &timeframes[base]
	baseTimeframe.Index++

	reference := baseTimeframe.Candlesticks[baseTimeframe.Index].OpenTime

	for ti := base + 1; ti < len(timeframes); ti++ {
		timeframe := &timeframes[ti]

		if timeframe.Index < timeframe.EndIndex && timeframe.CurrentCandle().CloseTime.Before(reference) {
			timeframe.Index++
		}
	}

	return true
}
