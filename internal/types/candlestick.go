package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candlestick is a single OHLCV bar. It is a plain value type: cloning a
// candlestick is an ordinary struct copy, and the engine never mutates a
// candlestick that belongs to the source history.
type Candlestick struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// SearchOpenTimeAtOrAfter returns the index of the first candlestick whose
// open time is at or after t. Returns len(candles) if no such candlestick
// exists. The slice must be sorted ascending by open time.
func SearchOpenTimeAtOrAfter(candles []Candlestick, t time.Time) int {
	lo, hi := 0, len(candles)
	for lo < hi {
		mid := (lo + hi) / 2
		if candles[mid].OpenTime.Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo
}

// SearchCloseTimeAtOrAfter returns the index of the first candlestick whose
// close time is at or after t. Returns len(candles) if no such candlestick
// exists. The slice must be sorted ascending by close time.
func SearchCloseTimeAtOrAfter(candles []Candlestick, t time.Time) int {
	lo, hi := 0, len(candles)
	for lo < hi {
		mid := (lo + hi) / 2
		if candles[mid].CloseTime.Before(t) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}

	return lo
}

// CloneRange copies candles[from:to+1] into a freshly allocated slice.
// The inclusive bounds mirror the cursor convention used by Timeframe.
func CloneRange(candles []Candlestick, from, to int) []Candlestick {
	out := make([]Candlestick, to-from+1)
	copy(out, candles[from:to+1])

	return out
}

// Reverse flips the candlestick slice in place.
func Reverse(candles []Candlestick) {
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
}
