package engine

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/mocks"
	"github.com/stretchr/testify/suite"
)

type CursorTestSuite struct {
	suite.Suite
}

func TestCursorSuite(t *testing.T) {
	suite.Run(t, new(CursorTestSuite))
}

func newTestEngine(config Config) *ReplayEngineV1 {
	return &ReplayEngineV1{
		config: config,
		log:    logger.NewTestLogger(),
	}
}

// twoTimeframeSymbol builds a symbol with a 5m base series and its 1h
// aggregation, cursors at the beginning.
func twoTimeframeSymbol(symbol string, count int) types.SymbolData {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	base := rampCandles(start, count)

	return mocks.BuildSymbolData(symbol, base, types.IntervalFiveMinutes, types.IntervalOneHour)
}

func (suite *CursorTestSuite) TestHigherTimeframeRollsAfterBarCloses() {
	symbolData := twoTimeframeSymbol("BTCUSDT", 24)

	// twelve advances put the 5m cursor at the 01:00 open; the 1h bar
	// closing at 01:00 is not yet strictly past, so it must not roll
	for i := 0; i < 12; i++ {
		suite.Require().True(advanceSymbol(&symbolData))
	}

	suite.Equal(12, symbolData.Timeframes[0].Index)
	suite.Equal(0, symbolData.Timeframes[1].Index)

	// the thirteenth advance moves the 5m open to 01:05, strictly past the
	// 1h close, and the 1h cursor rolls onto its second bar
	suite.Require().True(advanceSymbol(&symbolData))
	suite.Equal(13, symbolData.Timeframes[0].Index)
	suite.Equal(1, symbolData.Timeframes[1].Index)
}

func (suite *CursorTestSuite) TestExhaustedLowestHandsBaseToHigher() {
	symbolData := twoTimeframeSymbol("BTCUSDT", 24)

	lowest := &symbolData.Timeframes[0]
	lowest.Index = lowest.EndIndex
	lowest.Exhausted = true

	higher := &symbolData.Timeframes[1]
	suite.Require().Less(higher.Index, higher.EndIndex)

	suite.True(advanceSymbol(&symbolData))
	suite.Equal(lowest.EndIndex, lowest.Index, "exhausted lowest stays pinned")
	suite.Equal(1, higher.Index, "higher timeframe becomes the base")
}

func (suite *CursorTestSuite) TestNothingLeftToAdvance() {
	symbolData := twoTimeframeSymbol("BTCUSDT", 24)

	for ti := range symbolData.Timeframes {
		symbolData.Timeframes[ti].Index = symbolData.Timeframes[ti].EndIndex
	}

	suite.False(advanceSymbol(&symbolData))
}

func (suite *CursorTestSuite) TestAdvanceCursorsReportsAnySymbolMoving() {
	replay := newTestEngine(DefaultConfig())

	done := twoTimeframeSymbol("BTCUSDT", 24)
	for ti := range done.Timeframes {
		done.Timeframes[ti].Index = done.Timeframes[ti].EndIndex
	}

	active := twoTimeframeSymbol("ETHUSDT", 24)

	part := types.Part{done, active}
	suite.True(replay.advanceCursors(part))
	suite.Equal(1, part[1].Timeframes[0].Index)

	for ti := range part[1].Timeframes {
		part[1].Timeframes[ti].Index = part[1].Timeframes[ti].EndIndex
	}

	suite.False(replay.advanceCursors(part))
}

func (suite *CursorTestSuite) TestAdvanceCursorsParallel() {
	config := DefaultConfig()
	config.Parallel = true
	replay := newTestEngine(config)

	part := types.Part{
		twoTimeframeSymbol("ADAUSDT", 24),
		twoTimeframeSymbol("BTCUSDT", 24),
		twoTimeframeSymbol("ETHUSDT", 24),
	}

	for i := 0; i < 13; i++ {
		suite.Require().True(replay.advanceCursors(part))
	}

	for si := range part {
		suite.Equal(13, part[si].Timeframes[0].Index)
		suite.Equal(1, part[si].Timeframes[1].Index)
	}
}
