// Package engine implements the v1 replay engine: a sequential tick loop
// over split parts that clones a warmup-bounded window per symbol, masks the
// still-forming candle, invokes the strategy callback, and advances the
// per-timeframe cursors with lowest-timeframe-driven synchronization.
package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-replay/internal/backtest/engine"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var oneHundred = decimal.NewFromInt(100)

// ReplayEngineV1 is the single configurable replay engine. Running state is
// instance-scoped: concurrent engines never share flags, and one engine
// rejects overlapping Run calls instead of interleaving them.
type ReplayEngineV1 struct {
	config Config
	log    *logger.Logger

	mu      sync.Mutex
	running bool

	progressMu    sync.Mutex
	progressIndex int64
	maxIndex      int64
}

// NewReplayEngineV1 creates an uninitialized engine. Initialize must be
// called before Run.
func NewReplayEngineV1() engine.Engine {
	return &ReplayEngineV1{
		config: DefaultConfig(),
		log:    nil,
	}
}

// Initialize implements engine.Engine.
func (e *ReplayEngineV1) Initialize(config string) error {
	parsed, err := ParseConfig(config)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine config", err)
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	e.config = parsed
	e.log = log

	e.log.Debug("replay engine initialized",
		zap.Int("warmup_candles_count", e.config.WarmupCandlesCount),
		zap.Bool("sort_descending", e.config.SortDescending),
		zap.Bool("parallel", e.config.Parallel),
	)

	return nil
}

// GetConfigSchema implements engine.Engine.
func (e *ReplayEngineV1) GetConfigSchema() (string, error) {
	return e.config.GenerateSchemaJSON()
}

// Progress implements engine.Engine. Returns index/maxIndex*100, or zero
// when the run has no candles to process.
func (e *ReplayEngineV1) Progress() decimal.Decimal {
	e.progressMu.Lock()
	index, maxIndex := e.progressIndex, e.maxIndex
	e.progressMu.Unlock()

	if maxIndex == 0 {
		return decimal.Zero
	}

	return decimal.NewFromInt(index).Div(decimal.NewFromInt(maxIndex)).Mul(oneHundred)
}

// Run implements engine.Engine. Parts are replayed strictly in order; part
// N+1 never starts before part N's last tick completes. Cancellation is
// checked once per tick at the top of the loop and reported through the
// OnCancelled hook, never as an error.
func (e *ReplayEngineV1) Run(ctx context.Context, parts []types.Part, onTick engine.OnTickCallback, callbacks engine.LifecycleCallbacks) error {
	if e.log == nil {
		return errors.New(errors.ErrCodeEngineNotInitialized, "engine is not initialized")
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()

		return errors.New(errors.ErrCodeEngineAlreadyRunning, "engine is already running")
	}

	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	if len(parts) == 0 {
		return errors.New(errors.ErrCodeNoParts, "no parts to replay")
	}

	runID := uuid.NewString()

	// Progress is normalized against the sum of every part's maximum
	// lowest-timeframe end index, computed once up front.
	var maxIndex int64
	for _, part := range parts {
		maxIndex += maxLowestEndIndex(part)
	}

	e.setProgress(0, maxIndex)

	if callbacks.OnRunStart != nil {
		(*callbacks.OnRunStart)(runID, len(parts))
	}

	if callbacks.OnRunEnd != nil {
		defer (*callbacks.OnRunEnd)(runID)
	}

	e.log.Info("replay run started",
		zap.String("run_id", runID),
		zap.Int("parts", len(parts)),
	)

	tick := 0

	var completedBase int64

	for _, part := range parts {
		cancelled, err := e.runPart(ctx, runID, part, onTick, &tick, completedBase)
		if err != nil {
			return err
		}

		if cancelled {
			if callbacks.OnCancelled != nil {
				(*callbacks.OnCancelled)(runID)
			}

			e.log.Info("replay run cancelled",
				zap.String("run_id", runID),
				zap.Int("ticks", tick),
			)

			return nil
		}

		completedBase += maxLowestEndIndex(part)
		e.storeProgress(completedBase)
	}

	e.log.Info("replay run finished",
		zap.String("run_id", runID),
		zap.Int("ticks", tick),
	)

	return nil
}

// runPart drives the tick loop for one part until no cursor of any symbol
// can advance. Termination policy: a part is done when neither the lowest
// nor any higher timeframe has candles left to roll onto, so trailing
// higher-timeframe bars still receive their final ticks.
func (e *ReplayEngineV1) runPart(ctx context.Context, runID string, part types.Part, onTick engine.OnTickCallback, tick *int, progressBase int64) (bool, error) {
	if len(part) == 0 {
		return false, nil
	}

	for {
		select {
		case <-ctx.Done():
			return true, nil
		default:
		}

		window := e.cloneFeedingWindow(part)

		if !e.config.UseFullCandleForCurrent {
			e.maskCurrentCandles(part, window)
		}

		if err := onTick(runID, *tick, window); err != nil {
			if errors.Is(err, engine.ErrCancelled) {
				return true, nil
			}

			return false, errors.Wrap(errors.ErrCodeCallbackFailed, "strategy callback failed", err)
		}

		*tick++

		advanced := e.advanceCursors(part)
		e.storeProgress(progressBase + maxLowestIndex(part))

		if !advanced {
			return false, nil
		}
	}
}

// forEachSymbol applies fn to every symbol of the part, fanning out across
// goroutines when the engine is configured for parallel execution. Symbol
// tasks only ever touch their own symbol's state, so no ordering or locking
// is needed within one step.
func (e *ReplayEngineV1) forEachSymbol(part types.Part, fn func(si int)) {
	if !e.config.Parallel || len(part) < 2 {
		for si := range part {
			fn(si)
		}

		return
	}

	group := new(errgroup.Group)

	for si := range part {
		group.Go(func() error {
			fn(si)

			return nil
		})
	}

	_ = group.Wait()
}

func (e *ReplayEngineV1) setProgress(index, maxIndex int64) {
	e.progressMu.Lock()
	e.progressIndex = index
	e.maxIndex = maxIndex
	e.progressMu.Unlock()
}

func (e *ReplayEngineV1) storeProgress(index int64) {
	e.progressMu.Lock()
	if index > e.progressIndex {
		e.progressIndex = index
	}
	e.progressMu.Unlock()
}

// maxLowestEndIndex returns the largest lowest-timeframe end index among
// the part's symbols.
func maxLowestEndIndex(part types.Part) int64 {
	var maxEnd int64

	for si := range part {
		if end := int64(part[si].LowestTimeframe().EndIndex); end > maxEnd {
			maxEnd = end
		}
	}

	return maxEnd
}

// maxLowestIndex returns the largest lowest-timeframe cursor position among
// the part's symbols.
func maxLowestIndex(part types.Part) int64 {
	var maxIndex int64

	for si := range part {
		if index := int64(part[si].LowestTimeframe().Index); index > maxIndex {
			maxIndex = index
		}
	}

	return maxIndex
}
