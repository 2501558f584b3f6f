// Package engine defines the replay engine boundary: the engine interface,
// the per-tick strategy callback, and the lifecycle notification hooks.
package engine

import (
	"context"
	"errors"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/shopspring/decimal"
)

// ErrCancelled is the cooperative cancellation signal. A strategy callback
// returns it (or wraps it) to request a clean abort; the engine stops at the
// next tick boundary, fires OnCancelled, and Run returns nil. It is never
// surfaced to the caller as an error.
var ErrCancelled = errors.New("backtest cancelled")

// OnTickCallback receives the masked, warmup-bounded window for one tick.
// The window is an exclusively owned copy; the callback may retain or mutate
// it freely without affecting subsequent ticks.
type OnTickCallback func(runID string, tick int, window []types.SymbolData) error

// OnRunStartCallback is called once before the first tick of a run.
type OnRunStartCallback func(runID string, totalParts int)

// OnRunEndCallback is called once after the last tick of a run (also on
// cancellation, after OnCancelled).
type OnRunEndCallback func(runID string)

// OnCancelledCallback is called exactly once when a run aborts
// cooperatively, either through the context or through ErrCancelled.
type OnCancelledCallback func(runID string)

// LifecycleCallbacks holds the lifecycle notification hooks for a run.
// All fields are pointers - nil means no callback will be invoked. The hooks
// are fire-and-forget: the engine does not interpret their behavior.
type LifecycleCallbacks struct {
	OnRunStart  *OnRunStartCallback
	OnRunEnd    *OnRunEndCallback
	OnCancelled *OnCancelledCallback
}

// Engine replays split parts tick by tick against a strategy callback.
type Engine interface {
	// Initialize configures the engine from a YAML document.
	Initialize(config string) error
	// Run replays the parts in order, invoking onTick once per tick.
	// Cancellation through ctx or ErrCancelled is a clean abort, not an
	// error. The engine trusts its input: parts must come from the
	// splitter, which has already validated them.
	Run(ctx context.Context, parts []types.Part, onTick OnTickCallback, callbacks LifecycleCallbacks) error
	// Progress reports completion in [0, 100]. Safe to poll from another
	// goroutine while Run executes.
	Progress() decimal.Decimal
	// GetConfigSchema returns the JSON schema of the engine configuration.
	GetConfigSchema() (string, error)
}
