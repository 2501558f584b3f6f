package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-replay/internal/backtest/engine"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/splitter"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/mocks"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ReplayTestSuite struct {
	suite.Suite
}

func TestReplaySuite(t *testing.T) {
	suite.Run(t, new(ReplayTestSuite))
}

// smallParts builds a single part of ten 5m candles with no warmup.
func (suite *ReplayTestSuite) smallParts() []types.Part {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	symbolData := mocks.BuildSymbolData("BTCUSDT", rampCandles(start, 10), types.IntervalFiveMinutes)

	split := splitter.New(splitter.Config{
		DaysPerSplit:       0,
		WarmupCandlesCount: 0,
		BacktestingStart:   start,
		CorrectEndIndex:    false,
		WarmupInterval:     optional.None[types.Interval](),
	}, logger.NewTestLogger())

	parts, err := split.Split([]types.SymbolData{symbolData})
	suite.Require().NoError(err)

	return parts
}

func (suite *ReplayTestSuite) TestRunRequiresInitialize() {
	replay := NewReplayEngineV1()

	err := replay.Run(context.Background(), nil, nil, engine.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeEngineNotInitialized))
}

func (suite *ReplayTestSuite) TestRunRequiresParts() {
	replay := newTestEngine(DefaultConfig())

	err := replay.Run(context.Background(), nil, nil, engine.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeNoParts))
}

func (suite *ReplayTestSuite) TestRunRejectsReentrantRun() {
	replay := newTestEngine(DefaultConfig())
	parts := suite.smallParts()

	onTick := func(runID string, tick int, window []types.SymbolData) error {
		err := replay.Run(context.Background(), parts, nil, engine.LifecycleCallbacks{})
		suite.True(errors.HasCode(err, errors.ErrCodeEngineAlreadyRunning))

		return engine.ErrCancelled
	}

	suite.NoError(replay.Run(context.Background(), parts, onTick, engine.LifecycleCallbacks{}))
}

func (suite *ReplayTestSuite) TestRunReplaysWholeHistory() {
	generator := mocks.NewDataGenerator(42)
	config := mocks.DefaultConfig()
	config.Count = 500

	base := generator.Generate(config)
	symbolData := mocks.BuildSymbolData("BTCUSDT", base, types.IntervalFiveMinutes, types.IntervalOneDay)

	split := splitter.New(splitter.Config{
		DaysPerSplit:       0,
		WarmupCandlesCount: 2,
		BacktestingStart:   time.Date(2023, 1, 1, 0, 10, 0, 0, time.UTC),
		CorrectEndIndex:    false,
		WarmupInterval:     optional.None[types.Interval](),
	}, logger.NewTestLogger())

	parts, err := split.Split([]types.SymbolData{symbolData})
	suite.Require().NoError(err)

	replay := newTestEngine(Config{WarmupCandlesCount: 2, SortDescending: false})

	ticks := 0
	previousProgress := decimal.Zero

	var runID string

	onTick := func(id string, tick int, window []types.SymbolData) error {
		if ticks == 0 {
			runID = id

			suite.Require().Len(window, 1)
			suite.Require().Len(window[0].Timeframes, 2)

			lowest := window[0].LowestTimeframe()
			suite.Len(lowest.Candlesticks, 3, "first window holds warmup+1 candles")
			suite.True(lowest.Candlesticks[0].OpenTime.Equal(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
		}

		suite.Equal(id, runID, "run id is stable across ticks")
		suite.Equal(ticks, tick)

		current := window[0].LowestTimeframe().CurrentCandle()
		suite.True(current.Close.Equal(current.Open), "current candle is masked to its open")
		suite.True(current.CloseTime.Equal(current.OpenTime))

		progress := replay.Progress()
		suite.True(progress.GreaterThanOrEqual(previousProgress), "progress never regresses")
		previousProgress = progress

		ticks++

		return nil
	}

	suite.Require().NoError(replay.Run(context.Background(), parts, onTick, engine.LifecycleCallbacks{}))

	// candles 2 through 499 each get exactly one tick
	suite.Equal(498, ticks)
	suite.True(replay.Progress().Equal(decimal.NewFromInt(100)), "got %s", replay.Progress())
}

func (suite *ReplayTestSuite) TestRunMultiPartContiguity() {
	start := time.Date(2023, 1, 1, 3, 5, 0, 0, time.UTC)

	symbols := []string{"ADAUSDT", "BTCUSDT", "ETHUSDT"}
	symbolsData := make([]types.SymbolData, 0, len(symbols))

	for _, symbol := range symbols {
		symbolsData = append(symbolsData, mocks.BuildSymbolData(symbol,
			rampCandles(start, 672), types.IntervalFiveMinutes, types.IntervalFifteenMinutes))
	}

	split := splitter.New(splitter.Config{
		DaysPerSplit:       1,
		WarmupCandlesCount: 2,
		BacktestingStart:   time.Date(2023, 1, 1, 3, 6, 50, 0, time.UTC),
		CorrectEndIndex:    true,
		WarmupInterval:     optional.None[types.Interval](),
	}, logger.NewTestLogger())

	parts, err := split.Split(symbolsData)
	suite.Require().NoError(err)
	suite.Require().Len(parts, 3)

	replay := newTestEngine(Config{WarmupCandlesCount: 2, SortDescending: false, Parallel: true})

	started, ended := 0, 0
	totalParts := 0
	onStart := engine.OnRunStartCallback(func(runID string, parts int) {
		started++
		totalParts = parts
	})
	onEnd := engine.OnRunEndCallback(func(runID string) { ended++ })

	ticks := 0
	opens := make(map[string][]time.Time)

	onTick := func(runID string, tick int, window []types.SymbolData) error {
		ticks++

		for si := range window {
			current := window[si].LowestTimeframe().CurrentCandle()
			opens[window[si].Symbol] = append(opens[window[si].Symbol], current.OpenTime)
		}

		return nil
	}

	err = replay.Run(context.Background(), parts, onTick, engine.LifecycleCallbacks{
		OnRunStart: &onStart,
		OnRunEnd:   &onEnd,
	})
	suite.Require().NoError(err)

	suite.Equal(1, started)
	suite.Equal(1, ended)
	suite.Equal(3, totalParts)
	suite.True(replay.Progress().Equal(decimal.NewFromInt(100)))

	// every candle from the backtesting start onward is replayed exactly
	// once per symbol; a trailing tick repeating the final open is allowed
	// when only a higher timeframe still has a bar to close
	source := symbolsData[0].LowestTimeframe().Candlesticks

	for _, symbol := range symbols {
		collected := opens[symbol]
		suite.Require().Equal(ticks, len(collected))

		var distinct []time.Time

		for i, openTime := range collected {
			if i > 0 {
				suite.False(openTime.Before(collected[i-1]), "opens never move backwards")
			}

			if len(distinct) == 0 || !distinct[len(distinct)-1].Equal(openTime) {
				distinct = append(distinct, openTime)
			}
		}

		suite.Require().Len(distinct, len(source)-1)

		for i, openTime := range distinct {
			suite.True(openTime.Equal(source[i+1].OpenTime),
				"symbol %s tick %d should replay source candle %d", symbol, i, i+1)
		}
	}
}

func (suite *ReplayTestSuite) TestUnalignedStartKeepsHigherBarsAligned() {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	symbolData := mocks.BuildSymbolData("BTCUSDT", rampCandles(start, 36),
		types.IntervalFiveMinutes, types.IntervalOneHour)

	// a backtesting start strictly inside the first hour bar
	split := splitter.New(splitter.Config{
		DaysPerSplit:       0,
		WarmupCandlesCount: 2,
		BacktestingStart:   start.Add(7*time.Minute + 30*time.Second),
		CorrectEndIndex:    false,
		WarmupInterval:     optional.None[types.Interval](),
	}, logger.NewTestLogger())

	parts, err := split.Split([]types.SymbolData{symbolData})
	suite.Require().NoError(err)

	replay := newTestEngine(Config{WarmupCandlesCount: 2, SortDescending: false})

	onTick := func(runID string, tick int, window []types.SymbolData) error {
		now := window[0].LowestTimeframe().CurrentCandle().OpenTime

		higher := window[0].Timeframes[1]
		current := higher.CurrentCandle()

		// the current hour bar spans the current instant (a bar whose span
		// ended exactly now may linger one tick under the strict roll rule)
		suite.False(current.OpenTime.After(now),
			"tick %d: hour bar opening %s is ahead of the 5m open %s", tick, current.OpenTime, now)
		suite.False(current.OpenTime.Add(time.Hour).Before(now))

		// bars behind the cursor are warmup history and must have closed;
		// a still-forming bar there would expose its final high/low/close
		for ci := 0; ci < higher.Index; ci++ {
			suite.False(higher.Candlesticks[ci].CloseTime.After(now),
				"tick %d: warmup hour bar closing %s has not closed by %s",
				tick, higher.Candlesticks[ci].CloseTime, now)
		}

		return nil
	}

	suite.Require().NoError(replay.Run(context.Background(), parts, onTick, engine.LifecycleCallbacks{}))
}

func (suite *ReplayTestSuite) TestRunWrapsCallbackError() {
	replay := newTestEngine(DefaultConfig())

	onTick := func(runID string, tick int, window []types.SymbolData) error {
		return fmt.Errorf("strategy blew up")
	}

	err := replay.Run(context.Background(), suite.smallParts(), onTick, engine.LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeCallbackFailed))
}

func (suite *ReplayTestSuite) TestCancelThroughSentinel() {
	replay := newTestEngine(DefaultConfig())

	cancelled, ended := 0, 0
	onCancel := engine.OnCancelledCallback(func(runID string) { cancelled++ })
	onEnd := engine.OnRunEndCallback(func(runID string) { ended++ })

	ticks := 0
	onTick := func(runID string, tick int, window []types.SymbolData) error {
		ticks++

		return engine.ErrCancelled
	}

	err := replay.Run(context.Background(), suite.smallParts(), onTick, engine.LifecycleCallbacks{
		OnCancelled: &onCancel,
		OnRunEnd:    &onEnd,
	})
	suite.NoError(err, "cooperative cancellation is not an error")
	suite.Equal(1, ticks)
	suite.Equal(1, cancelled)
	suite.Equal(1, ended)
}

func (suite *ReplayTestSuite) TestCancelThroughContext() {
	replay := newTestEngine(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelledCount := 0
	onCancel := engine.OnCancelledCallback(func(runID string) { cancelledCount++ })

	ticks := 0
	onTick := func(runID string, tick int, window []types.SymbolData) error {
		ticks++
		cancel()

		return nil
	}

	err := replay.Run(ctx, suite.smallParts(), onTick, engine.LifecycleCallbacks{
		OnCancelled: &onCancel,
	})
	suite.NoError(err)
	suite.Equal(1, ticks, "cancellation is detected at the next tick boundary")
	suite.Equal(1, cancelledCount)
}

func (suite *ReplayTestSuite) TestUseFullCandleForCurrent() {
	replay := newTestEngine(Config{UseFullCandleForCurrent: true, SortDescending: false})

	onTick := func(runID string, tick int, window []types.SymbolData) error {
		current := window[0].LowestTimeframe().CurrentCandle()
		suite.True(current.CloseTime.Equal(current.OpenTime.Add(5*time.Minute)),
			"the still-forming candle is exposed unmasked")

		return engine.ErrCancelled
	}

	suite.NoError(replay.Run(context.Background(), suite.smallParts(), onTick, engine.LifecycleCallbacks{}))
}

func (suite *ReplayTestSuite) TestProgressZeroBeforeRun() {
	replay := newTestEngine(DefaultConfig())
	suite.True(replay.Progress().IsZero())
}
