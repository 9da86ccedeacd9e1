package session

import (
	"context"
	"time"

	"github.com/konosubakonoakua/jumpy/core"
	"github.com/konosubakonoakua/jumpy/internal/logging"
	"github.com/konosubakonoakua/jumpy/timectrl"
)

// LocalRunner advances the simulation at the fixed core.FPS using a classic
// accumulator. It is the simplest Runner: no transport, no errors.
type LocalRunner struct {
	runnerCore

	clock   timectrl.Clock
	log     logging.Logger
	metrics Metrics

	// accumulator is the simulated-time debt, in seconds, not yet paid off
	// by a logical step. It only ever decreases by exactly one step at a
	// time, gated on accumulator >= StepSeconds.
	accumulator float64

	// lastFrame anchors the frame-delta measurement between calls.
	lastFrame time.Time

	// loopStart is the wall-clock instant the current catch-up burst
	// began. Zero when no burst is in progress.
	loopStart time.Time
}

// NewLocalRunner builds a local runner around a fresh core session.
func NewLocalRunner(cfg core.Config, clock timectrl.Clock, log logging.Logger, metrics Metrics) *LocalRunner {
	if clock == nil {
		clock = timectrl.System()
	}
	if log == nil {
		log = logging.Noop()
	}
	return &LocalRunner{
		runnerCore: runnerCore{core: core.NewSession(cfg)},
		clock:      clock,
		log:        log,
		metrics:    metrics,
	}
}

// Advance applies one logical step. Local sessions cannot fail.
func (r *LocalRunner) Advance(ctx context.Context) error {
	r.core.Advance(ctx)
	return nil
}

// RunCriteria implements the fixed-step accumulator with overrun protection:
// pay off one step of debt per call while debt remains, but if the burst
// itself has already consumed more than one step of wall-clock time, drop the
// remaining debt instead of spiralling into unbounded catch-up.
func (r *LocalRunner) RunCriteria(now time.Time) StepDecision {
	if r.loopStart.IsZero() {
		if !r.lastFrame.IsZero() {
			r.accumulator += now.Sub(r.lastFrame).Seconds()
		}
		r.lastFrame = now
	}

	if r.accumulator >= core.StepSeconds {
		if r.loopStart.IsZero() {
			r.loopStart = r.clock.Now()
		}

		if r.clock.Now().Sub(r.loopStart).Seconds() > core.StepSeconds {
			r.log.Warn(context.Background(), "frame took too long, dropping accumulated time",
				logging.Uint64("tick", r.core.Tick()),
				logging.Float64("accumulator_s", r.accumulator))
			if r.metrics != nil {
				r.metrics.CatchupAborted()
			}
			r.accumulator = 0
			r.loopStart = time.Time{}
			return DontStep
		}

		r.accumulator -= core.StepSeconds
		return StepAndCheckAgain
	}

	r.loopStart = time.Time{}
	return DontStep
}

// NetworkPlayerIdx always reports no network slot for local sessions.
func (r *LocalRunner) NetworkPlayerIdx() (int, bool) { return 0, false }

// Close is a no-op; local runners hold no external resources.
func (r *LocalRunner) Close() error { return nil }
