package types

// Timeframe holds one interval's candlestick history together with the
// cursor state the replay engine drives.
//
// Cursor invariant: StartIndex <= Index <= EndIndex < len(Candlesticks).
// StartIndex marks the beginning of the warmup region, Index the candle that
// is "now", and EndIndex the last candle this slice may ever expose.
// Exhausted is set by the splitter when no history exists beyond EndIndex.
type Timeframe struct {
	Interval     Interval
	StartIndex   int
	Index        int
	EndIndex     int
	Exhausted    bool
	Candlesticks []Candlestick
}

// CurrentCandle returns the candle at the cursor position.
func (t *Timeframe) CurrentCandle() Candlestick {
	return t.Candlesticks[t.Index]
}

// SymbolData pairs a symbol with its timeframes, sorted ascending by
// interval granularity. The finest timeframe is always Timeframes[0].
type SymbolData struct {
	Symbol     string
	Timeframes []Timeframe
}

// LowestTimeframe returns the finest timeframe of the symbol. Panics on an
// empty timeframe list; the splitter rejects such input before the engine
// ever sees it.
func (s *SymbolData) LowestTimeframe() *Timeframe {
	return &s.Timeframes[0]
}

// Part is one time-bounded slice of the full history, produced by the
// splitter and consumed in order by the engine.
type Part []SymbolData
