// Package session drives the deterministic match simulation from the host's
// variable-rate frame loop. A Session owns exactly one Runner; the Runner
// owns the core simulation and decides, each real frame, how many fixed
// logical steps to apply.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/konosubakonoakua/jumpy/core"
)

// ErrDisconnected is the only error a Runner propagates from Advance. It is
// raised when a network runner's transport reports the peer connection is
// irrecoverably lost; local runners never return it.
var ErrDisconnected = errors.New("session disconnected")

// StepDecision is the scheduling outcome produced once per RunCriteria call
// and consumed immediately by the driver.
type StepDecision int

const (
	// DontStep means no logical step should run this frame.
	DontStep StepDecision = iota
	// StepOnce means run one step and stop checking this frame.
	StepOnce
	// StepAndCheckAgain means run one step and call RunCriteria again,
	// allowing multiple catch-up steps within a single real frame.
	StepAndCheckAgain
)

// Runner is implemented by every session execution strategy. All methods are
// called from the single frame-loop goroutine; Advance, Restart, and the
// input accessors on one Runner never interleave.
type Runner interface {
	// Core returns the owned simulation core.
	Core() *core.Session

	// Restart resets the owned core to its initial state.
	Restart()

	// PlayerInput returns the control record for one slot, delegating slot
	// bounds to the core's own table size.
	PlayerInput(idx int) core.PlayerControl

	// SetPlayerInput writes the control record for one slot.
	SetPlayerInput(idx int, control core.PlayerControl)

	// Advance applies exactly the stepping decided by RunCriteria for this
	// frame. It returns ErrDisconnected when the underlying transport
	// reports the match is lost; a frame context error is passed through
	// as-is and does not end the session.
	Advance(ctx context.Context) error

	// RunCriteria decides whether the simulation should step, given the
	// current frame time. It may mutate only the runner's private timing
	// state.
	RunCriteria(now time.Time) StepDecision

	// NetworkPlayerIdx reports the authoritative input-table slot assigned
	// to the local participant. ok is false for local sessions. In a
	// network match only one local participant is permitted per process,
	// so local input for UI slot 0 is remapped onto this index.
	NetworkPlayerIdx() (idx int, ok bool)

	// Close releases any transport or timing state owned by the runner.
	Close() error
}

// runnerCore carries the core ownership and input delegation shared by every
// runner variant.
type runnerCore struct {
	core *core.Session
}

func (r *runnerCore) Core() *core.Session { return r.core }

func (r *runnerCore) Restart() { r.core.Restart() }

func (r *runnerCore) PlayerInput(idx int) core.PlayerControl {
	return r.core.Input(idx)
}

func (r *runnerCore) SetPlayerInput(idx int, control core.PlayerControl) {
	r.core.UpdateInputs(func(in *core.PlayerInputs) {
		in.Players[idx].Control = control
	})
}
