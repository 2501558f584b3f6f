// Package splitter partitions full-history symbol data into sequential,
// memory-bounded parts for the replay engine. Each part carries recalculated
// warmup/start/current/end cursors per timeframe, and consecutive parts line
// up with no gaps and no overlaps in the data the engine consumes.
package splitter

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"go.uber.org/zap"
)

// Config controls how the full history is partitioned.
type Config struct {
	// DaysPerSplit is the length of one part in days. Zero or negative
	// disables splitting and produces a single part spanning the whole
	// history.
	DaysPerSplit int
	// WarmupCandlesCount is the number of historical candles included
	// before the first tradable candle of each part.
	WarmupCandlesCount int
	// BacktestingStart is the simulated time the backtest begins at.
	BacktestingStart time.Time
	// CorrectEndIndex aligns the end indices of a symbol's timeframes to a
	// mutually consistent close time once one of them runs out of history.
	CorrectEndIndex bool
	// WarmupInterval optionally pins the timeframe used to seed warmup
	// context. When none, the coarsest timeframe whose warmup walk-back
	// stays within the available history is chosen.
	WarmupInterval optional.Option[types.Interval]
}

// Splitter produces parts from full-history symbol data.
type Splitter struct {
	config Config
	log    *logger.Logger
}

// New creates a Splitter with the given configuration.
func New(config Config, log *logger.Logger) *Splitter {
	return &Splitter{
		config: config,
		log:    log,
	}
}

// Split validates the input and partitions it into ordered parts.
// Validation failures are fatal for the whole call; no partial result is
// ever returned.
func (s *Splitter) Split(symbolsData []types.SymbolData) ([]types.Part, error) {
	if err := validateSymbolsData(symbolsData); err != nil {
		return nil, err
	}

	if s.config.DaysPerSplit <= 0 {
		part := s.singlePart(symbolsData)

		s.log.Debug("split disabled, produced single part",
			zap.Int("symbols", len(part)),
		)

		return []types.Part{part}, nil
	}

	warmupInterval := s.resolveWarmupInterval(symbolsData)

	parts := s.splitParts(symbolsData, warmupInterval)

	s.log.Debug("split completed",
		zap.Int("parts", len(parts)),
		zap.Int("days_per_split", s.config.DaysPerSplit),
		zap.String("warmup_interval", string(warmupInterval)),
	)

	return parts, nil
}

// resolveWarmupInterval picks the coarsest interval present in the batch
// whose warmup walk-back from BacktestingStart does not reach past the
// beginning of the available history for any symbol carrying it. Falls back
// to the finest interval present when no coarser one qualifies.
func (s *Splitter) resolveWarmupInterval(symbolsData []types.SymbolData) types.Interval {
	if s.config.WarmupInterval.IsSome() {
		return s.config.WarmupInterval.Unwrap()
	}

	finest := symbolsData[0].Timeframes[0].Interval
	chosen := finest

	for _, candidate := range types.AllIntervals {
		if candidate.Finer(chosen) {
			continue
		}

		walkBack := s.config.BacktestingStart.Add(-time.Duration(s.config.WarmupCandlesCount) * candidate.Duration())
		carried := false
		fits := true

		for si := range symbolsData {
			for ti := range symbolsData[si].Timeframes {
				timeframe := &symbolsData[si].Timeframes[ti]
				if timeframe.Interval != candidate {
					continue
				}

				carried = true

				if timeframe.Candlesticks[0].OpenTime.After(walkBack) {
					fits = false
				}
			}
		}

		if carried && fits {
			chosen = candidate
		}
	}

	return chosen
}

// singlePart handles the DaysPerSplit <= 0 fast path: one part containing
// the entire history with cursors positioned at BacktestingStart.
func (s *Splitter) singlePart(symbolsData []types.SymbolData) types.Part {
	part := make(types.Part, 0, len(symbolsData))

	for si := range symbolsData {
		source := &symbolsData[si]
		out := types.SymbolData{
			Symbol:     source.Symbol,
			Timeframes: make([]types.Timeframe, 0, len(source.Timeframes)),
		}

		for ti := range source.Timeframes {
			timeframe := &source.Timeframes[ti]

			index := initialIndex(timeframe.Candlesticks, s.config.BacktestingStart, ti == 0)
			if index >= len(timeframe.Candlesticks) {
				// whole history predates the backtesting start
				continue
			}

			startIndex := index - s.config.WarmupCandlesCount
			if startIndex < 0 {
				startIndex = 0
			}

			out.Timeframes = append(out.Timeframes, types.Timeframe{
				Interval:     timeframe.Interval,
				StartIndex:   startIndex,
				Index:        index,
				EndIndex:     len(timeframe.Candlesticks) - 1,
				Exhausted:    true,
				Candlesticks: types.CloneRange(timeframe.Candlesticks, 0, len(timeframe.Candlesticks)-1),
			})
		}

		if len(out.Timeframes) > 0 {
			part = append(part, out)
		}
	}

	return part
}

// splitParts runs the ongoing-time loop, producing one part per
// DaysPerSplit window until every symbol's history is exhausted. The cursor
// advances once per full pass over all symbols, never per symbol.
func (s *Splitter) splitParts(symbolsData []types.SymbolData, warmupInterval types.Interval) []types.Part {
	splitSpan := time.Duration(s.config.DaysPerSplit) * 24 * time.Hour

	var historyEnd time.Time

	for si := range symbolsData {
		for ti := range symbolsData[si].Timeframes {
			candles := symbolsData[si].Timeframes[ti].Candlesticks
			if last := candles[len(candles)-1].CloseTime; last.After(historyEnd) {
				historyEnd = last
			}
		}
	}

	exhausted := make([]bool, len(symbolsData))
	ongoing := s.config.BacktestingStart

	var parts []types.Part

	for !ongoing.After(historyEnd) {
		remaining := false

		for si := range exhausted {
			if !exhausted[si] {
				remaining = true

				break
			}
		}

		if !remaining {
			break
		}

		splitEnd := ongoing.Add(splitSpan).Add(-time.Second)
		part := types.Part{}

		for si := range symbolsData {
			if exhausted[si] {
				continue
			}

			symbolPart, symbolExhausted := s.sliceSymbol(&symbolsData[si], ongoing, splitEnd, warmupInterval)
			if symbolExhausted {
				exhausted[si] = true
			}

			if len(symbolPart.Timeframes) > 0 {
				part = append(part, symbolPart)
			}
		}

		if len(part) > 0 {
			parts = append(parts, part)
		}

		ongoing = ongoing.Add(splitSpan)
	}

	return parts
}

// initialIndex locates the starting cursor for a timeframe at the given
// instant. The lowest timeframe starts at the next candle to tick. A higher
// timeframe starts at the candle whose span contains the instant: starting at
// the next open would leave its still-forming bar behind the cursor, where
// the engine's warmup clone exposes the bar's final values unmasked.
func initialIndex(candles []types.Candlestick, at time.Time, lowest bool) int {
	if lowest {
		return types.SearchOpenTimeAtOrAfter(candles, at)
	}

	index := types.SearchCloseTimeAtOrAfter(candles, at)
	if index < len(candles) && !candles[index].CloseTime.After(at) {
		// the bar ends exactly at the instant; the containing bar is the next
		index++
	}

	return index
}

// timeframeCursor holds the raw (not yet rebased) cursor positions computed
// for one timeframe of one split window.
type timeframeCursor struct {
	index     int
	start     int
	end       int
	exhausted bool
	// skip marks a timeframe with no candles inside the split window,
	// either because its data starts later (it rejoins a future part) or
	// because it ran out entirely.
	skip bool
}

// sliceSymbol computes cursors for every timeframe of one symbol within
// [ongoing, splitEnd], applies end-index correction, and materializes a
// rebased SymbolData holding cloned candle ranges. The second return value
// reports whether the symbol has no history beyond this window.
func (s *Splitter) sliceSymbol(source *types.SymbolData, ongoing, splitEnd time.Time, warmupInterval types.Interval) (types.SymbolData, bool) {
	cursors := make([]timeframeCursor, len(source.Timeframes))

	for ti := range source.Timeframes {
		timeframe := &source.Timeframes[ti]
		candles := timeframe.Candlesticks

		index := initialIndex(candles, ongoing, ti == 0)
		if index >= len(candles) {
			cursors[ti] = timeframeCursor{skip: true, exhausted: true}

			continue
		}

		if candles[index].OpenTime.After(splitEnd) {
			// data starts after this window; the symbol rejoins later
			cursors[ti] = timeframeCursor{skip: true}

			continue
		}

		start := index
		if !warmupInterval.Finer(timeframe.Interval) {
			start = index - s.config.WarmupCandlesCount
			if start < 0 {
				start = 0
			}
		}

		end := types.SearchCloseTimeAtOrAfter(candles, splitEnd)
		isExhausted := false

		if end >= len(candles) {
			end = len(candles) - 1
			isExhausted = true
		}

		if end < index {
			end = index
		}

		cursors[ti] = timeframeCursor{
			index:     index,
			start:     start,
			end:       end,
			exhausted: isExhausted,
		}
	}

	if s.config.CorrectEndIndex {
		s.correctEndIndices(source, cursors)
	}

	out := types.SymbolData{
		Symbol:     source.Symbol,
		Timeframes: make([]types.Timeframe, 0, len(source.Timeframes)),
	}
	allExhausted := true

	for ti := range cursors {
		cursor := cursors[ti]

		if cursor.skip {
			if !cursor.exhausted {
				allExhausted = false
			}

			continue
		}

		timeframe := &source.Timeframes[ti]

		out.Timeframes = append(out.Timeframes, types.Timeframe{
			Interval:     timeframe.Interval,
			StartIndex:   0,
			Index:        cursor.index - cursor.start,
			EndIndex:     cursor.end - cursor.start,
			Exhausted:    cursor.exhausted,
			Candlesticks: types.CloneRange(timeframe.Candlesticks, cursor.start, cursor.end),
		})

		if !cursor.exhausted {
			allExhausted = false
		}
	}

	return out, allExhausted
}

// correctEndIndices re-derives the end index of every non-exhausted
// timeframe from the coarsest exhausted sibling, so all timeframes of the
// symbol end at a mutually consistent point in time. The coarsest sibling is
// authoritative: its candles span the widest range, so its final close time
// is the latest instant every sibling can still reach.
func (s *Splitter) correctEndIndices(source *types.SymbolData, cursors []timeframeCursor) {
	authority := -1

	for ti := len(cursors) - 1; ti >= 0; ti-- {
		if !cursors[ti].skip && cursors[ti].exhausted {
			authority = ti

			break
		}
	}

	if authority == -1 {
		return
	}

	authorityClose := source.Timeframes[authority].Candlesticks[cursors[authority].end].CloseTime

	for ti := range cursors {
		if cursors[ti].skip || cursors[ti].exhausted {
			continue
		}

		candles := source.Timeframes[ti].Candlesticks

		end := types.SearchCloseTimeAtOrAfter(candles, authorityClose)
		if end >= len(candles) {
			end = len(candles) - 1
		}

		if end < cursors[ti].index {
			end = cursors[ti].index
		}

		cursors[ti].end = end
	}
}
