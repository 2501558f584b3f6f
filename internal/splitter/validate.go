package splitter

import (
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
)

// validateSymbolsData runs the sortedness and duplicate checks required
// before any split work begins. The engine performs no validation of its
// own, so this is the single gate for malformed input.
//
// Sortedness is an adjacent-pair check, not an exhaustive scan of every
// possible ordering violation: adjacent-pair covers all of them for a total
// order anyway, and keeps the check linear.
func validateSymbolsData(symbolsData []types.SymbolData) error {
	if len(symbolsData) == 0 {
		return errors.New(errors.ErrCodeNoSymbolData, "no symbol data provided")
	}

	seenSymbols := make(map[string]struct{}, len(symbolsData))

	for si := range symbolsData {
		symbolData := &symbolsData[si]

		if _, ok := seenSymbols[symbolData.Symbol]; ok {
			return errors.Newf(errors.ErrCodeDuplicateSymbol, "duplicate symbol %s in batch", symbolData.Symbol)
		}

		seenSymbols[symbolData.Symbol] = struct{}{}

		if len(symbolData.Timeframes) == 0 {
			return errors.Newf(errors.ErrCodeEmptyTimeframes, "symbol %s has no timeframes", symbolData.Symbol)
		}

		seenIntervals := make(map[types.Interval]struct{}, len(symbolData.Timeframes))

		for ti := range symbolData.Timeframes {
			timeframe := &symbolData.Timeframes[ti]

			if _, ok := seenIntervals[timeframe.Interval]; ok {
				return errors.Newf(errors.ErrCodeDuplicateInterval,
					"symbol %s has duplicate interval %s", symbolData.Symbol, timeframe.Interval)
			}

			seenIntervals[timeframe.Interval] = struct{}{}

			if ti > 0 {
				previous := &symbolData.Timeframes[ti-1]
				if !previous.Interval.Finer(timeframe.Interval) {
					return errors.Newf(errors.ErrCodeUnsortedTimeframes,
						"symbol %s timeframes are not sorted ascending by interval (%s before %s)",
						symbolData.Symbol, previous.Interval, timeframe.Interval)
				}
			}

			if len(timeframe.Candlesticks) == 0 {
				return errors.Newf(errors.ErrCodeEmptyCandlesticks,
					"symbol %s timeframe %s has no candlesticks", symbolData.Symbol, timeframe.Interval)
			}

			for ci := 1; ci < len(timeframe.Candlesticks); ci++ {
				if !timeframe.Candlesticks[ci-1].OpenTime.Before(timeframe.Candlesticks[ci].OpenTime) {
					return errors.Newf(errors.ErrCodeUnsortedCandlesticks,
						"symbol %s timeframe %s candlesticks are not sorted ascending by open time at index %d",
						symbolData.Symbol, timeframe.Interval, ci)
				}
			}
		}
	}

	return nil
}
