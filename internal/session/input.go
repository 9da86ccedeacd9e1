package session

import (
	"math"

	"github.com/konosubakonoakua/jumpy/core"
)

// Action identifies one mapped player action.
type Action int

const (
	// ActionMove is the continuous movement axis pair.
	ActionMove Action = iota
	// ActionJump is the jump button.
	ActionJump
	// ActionGrab is the grab button.
	ActionGrab
	// ActionShoot is the shoot button.
	ActionShoot
)

// ActionSource exposes the raw device/action state for one local player. The
// input layer that polls devices and resolves bindings lives outside this
// package; the driver only reads the resolved state.
type ActionSource interface {
	// Pressed reports whether the action's button is currently held.
	Pressed(a Action) bool
	// Axis returns the action's current axis pair.
	Axis(a Action) core.Vec2
}

// InputCollector pairs a UI player slot with its action source.
type InputCollector struct {
	Slot   int
	Source ActionSource
}

// collectInput produces this frame's input snapshot. Edge-triggered fields
// are recomputed against the control record from the previous frame, fetched
// from the slot the input will actually be written to, so edges stay correct
// under network slot remapping.
func (d *Driver) collectInput(sess *Session) {
	runner := sess.runner
	netIdx, isNetwork := runner.NetworkPlayerIdx()

	// Editor control is a local-only capability.
	if local, ok := runner.(*LocalRunner); ok {
		if cmds := d.takeEditorInput(); len(cmds) > 0 {
			local.Core().UpdateInputs(func(in *core.PlayerInputs) {
				in.Players[0].Editor = append(in.Players[0].Editor, cmds...)
			})
		}
	}

	for _, collector := range d.collectors {
		// Only one local participant exists in a network match, mapped
		// from UI slot 0; AI slots are driven by the simulation itself.
		if collector.Slot != 0 && isNetwork {
			continue
		}
		isAI := false
		runner.Core().UpdateInputs(func(in *core.PlayerInputs) {
			isAI = in.Players[collector.Slot].IsAI
		})
		if isAI {
			continue
		}

		target := collector.Slot
		if isNetwork {
			target = netIdx
		}

		control := runner.PlayerInput(target)
		applyActionState(&control, collector.Source)
		runner.SetPlayerInput(target, control)
	}
}

// applyActionState overwrites the control record's raw fields from the source
// and derives the edge-triggered fields from the previous record's state.
func applyActionState(control *core.PlayerControl, src ActionSource) {
	jump := src.Pressed(ActionJump)
	control.JumpJustPressed = jump && !control.JumpPressed
	control.JumpPressed = jump

	grab := src.Pressed(ActionGrab)
	control.GrabJustPressed = grab && !control.GrabPressed
	control.GrabPressed = grab

	shoot := src.Pressed(ActionShoot)
	control.ShootJustPressed = shoot && !control.ShootPressed
	control.ShootPressed = shoot

	wasMoving := control.MoveDirection.LenSq() > math.SmallestNonzeroFloat64
	control.MoveDirection = src.Axis(ActionMove)
	isMoving := control.MoveDirection.LenSq() > math.SmallestNonzeroFloat64
	control.JustMoved = !wasMoving && isMoving
}
