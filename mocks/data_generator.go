// Package mocks generates synthetic candlestick data for tests and
// examples.
package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
)

// DataGenerator generates realistic candlestick data for testing.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how candlestick data is generated.
type GeneratorConfig struct {
	// StartTime is the open time of the first candle
	StartTime time.Time
	// Interval is the candle granularity
	Interval types.Interval
	// Count is the number of candles to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement per candle (0.002 = 0.2%)
	Volatility float64
	// Trend is the drift factor across the whole series
	Trend float64
	// VolumeBase is the average volume per candle
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartTime:      time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       types.IntervalFiveMinutes,
		Count:          500,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates a candle series following geometric Brownian motion,
// with contiguous open/close times at the configured interval.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Candlestick {
	candles := make([]types.Candlestick, config.Count)
	duration := config.Interval.Duration()
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for a normally distributed step
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)
		closePrice := open * (1 + config.Volatility*z + drift)

		high := math.Max(open, closePrice) * (1 + g.rng.Float64()*config.Volatility)
		low := math.Min(open, closePrice) * (1 - g.rng.Float64()*config.Volatility)

		volume := config.VolumeBase * (1 + (g.rng.Float64()*2-1)*config.VolumeVariance)

		candles[i] = types.Candlestick{
			OpenTime:  currentTime,
			CloseTime: currentTime.Add(duration),
			Open:      decimal.NewFromFloat(open),
			High:      decimal.NewFromFloat(high),
			Low:       decimal.NewFromFloat(low),
			Close:     decimal.NewFromFloat(closePrice),
			Volume:    decimal.NewFromFloat(volume),
		}

		currentPrice = closePrice
		currentTime = currentTime.Add(duration)
	}

	return candles
}

// Aggregate rolls a fine-grained candle series up to a coarser interval,
// bucketing by open time truncated to the target duration. A trailing
// partial bucket is emitted as-is, matching a live feed's still-forming bar.
func Aggregate(candles []types.Candlestick, target types.Interval) []types.Candlestick {
	duration := target.Duration()

	var out []types.Candlestick

	for _, candle := range candles {
		bucket := candle.OpenTime.Truncate(duration)

		if len(out) == 0 || !out[len(out)-1].OpenTime.Equal(bucket) {
			out = append(out, types.Candlestick{
				OpenTime:  bucket,
				CloseTime: bucket.Add(duration),
				Open:      candle.Open,
				High:      candle.High,
				Low:       candle.Low,
				Close:     candle.Close,
				Volume:    candle.Volume,
			})

			continue
		}

		last := &out[len(out)-1]

		if candle.High.GreaterThan(last.High) {
			last.High = candle.High
		}

		if candle.Low.LessThan(last.Low) {
			last.Low = candle.Low
		}

		last.Close = candle.Close
		last.Volume = last.Volume.Add(candle.Volume)
	}

	return out
}

// BuildSymbolData assembles a SymbolData from a base candle series plus
// aggregations to the given coarser intervals, timeframes sorted ascending
// by granularity as the splitter requires.
func BuildSymbolData(symbol string, base []types.Candlestick, baseInterval types.Interval, higher ...types.Interval) types.SymbolData {
	symbolData := types.SymbolData{
		Symbol: symbol,
		Timeframes: []types.Timeframe{
			{
				Interval:     baseInterval,
				StartIndex:   0,
				Index:        0,
				EndIndex:     len(base) - 1,
				Exhausted:    false,
				Candlesticks: base,
			},
		},
	}

	for _, interval := range higher {
		aggregated := Aggregate(base, interval)

		symbolData.Timeframes = append(symbolData.Timeframes, types.Timeframe{
			Interval:     interval,
			StartIndex:   0,
			Index:        0,
			EndIndex:     len(aggregated) - 1,
			Exhausted:    false,
			Candlesticks: aggregated,
		})
	}

	return symbolData
}
