package core

// Vec2 is a 2D vector. Plain float64 math keeps steps deterministic across
// runs on the same build.
type Vec2 struct {
	X, Y float64
}

// LenSq returns the squared length of the vector.
func (v Vec2) LenSq() float64 { return v.X*v.X + v.Y*v.Y }

// PlayerControl is the network-safe control record for one player slot. The
// *JustPressed fields are edge-triggered: true only on the tick the button
// transitioned from released to pressed. They are recomputed from the raw
// device state on every input collection pass, never copied from it.
type PlayerControl struct {
	MoveDirection Vec2
	JustMoved     bool

	JumpPressed     bool
	JumpJustPressed bool

	GrabPressed     bool
	GrabJustPressed bool

	ShootPressed     bool
	ShootJustPressed bool
}

// EditorCommandKind tags an editor command.
type EditorCommandKind int

const (
	// EditorSpawnElement places a new map element.
	EditorSpawnElement EditorCommandKind = iota
	// EditorDeleteElement removes the named map element.
	EditorDeleteElement
	// EditorMovePlayer teleports the slot's player.
	EditorMovePlayer
)

// EditorCommand is a deferred world mutation queued by the editor. Commands
// are plain data rather than closures so they can be inspected, and so they
// never alias live world state while the step iterates it.
type EditorCommand struct {
	Kind    EditorCommandKind
	Element string
	Pos     Vec2
}

// PlayerInput is one slot of the per-player input table.
type PlayerInput struct {
	// Active marks the slot as participating in the match.
	Active bool
	// IsAI marks the slot as simulation-controlled; local input collection
	// must skip it.
	IsAI bool
	// Character is the selected character's metadata ID. Empty means the
	// slot is not ready yet and is skipped during steps.
	Character string
	// Control is the current control record for the slot.
	Control PlayerControl
	// Editor holds editor commands to apply on the next step. Local-only.
	Editor []EditorCommand
}

// PlayerInputs is the fixed-size input table, one slot per supported player.
type PlayerInputs struct {
	Players [MaxPlayers]PlayerInput
}

// ActiveCount returns the number of active slots.
func (p *PlayerInputs) ActiveCount() int {
	n := 0
	for i := range p.Players {
		if p.Players[i].Active {
			n++
		}
	}
	return n
}
