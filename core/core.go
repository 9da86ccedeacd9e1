// Package core implements the deterministic match simulation. The world is
// only ever mutated through Advance and Restart, so two sessions created from
// the same Config and fed the same inputs stay bit-identical tick for tick.
package core

import (
	"context"
	"time"
)

// FPS is the fixed logical tick rate of the simulation.
const FPS = 60

// StepSeconds is the duration of one logical tick, in seconds of simulated
// time. Every call to Advance represents exactly this much time regardless of
// how much real time has passed.
const StepSeconds = 1.0 / float64(FPS)

// Step is one logical tick as a wall-clock duration.
const Step = time.Second / FPS

// MaxPlayers is the number of slots in the per-player input table.
const MaxPlayers = 4

// CharacterMeta describes a selectable character.
type CharacterMeta struct {
	ID        string
	Name      string
	MoveSpeed float64 // horizontal speed, units per second
	JumpSpeed float64 // initial upward velocity on jump, units per second
}

// Meta is the match-level metadata the session layer needs: which characters
// are available for auto-assignment when a match starts without going through
// player selection.
type Meta struct {
	Players []CharacterMeta
}

// Config captures everything needed to build (and rebuild) the initial world.
type Config struct {
	Meta Meta
	// Map names the level. It is informational only at this layer.
	Map string
	// Gravity is downward acceleration in units per second squared. Zero
	// means DefaultGravity.
	Gravity float64
}

// DefaultGravity is applied when Config.Gravity is unset.
const DefaultGravity = 30.0

// PlayerState is the dynamic state of one player in the world.
type PlayerState struct {
	Pos        Vec2
	Vel        Vec2
	Grounded   bool
	FacingLeft bool
}

// Element is a map element placed by editor commands.
type Element struct {
	Name string
	Pos  Vec2
}

// World is the complete mutable simulation state.
type World struct {
	Players  [MaxPlayers]PlayerState
	Elements []Element
}

// Session is the deterministic simulation core for one match. It owns the
// world, the per-player input table, and the queue of presentation effects
// emitted by steps.
type Session struct {
	cfg     Config
	world   World
	inputs  PlayerInputs
	effects []Effect
	tick    uint64
}

// NewSession builds a session with a freshly initialised world.
func NewSession(cfg Config) *Session {
	if cfg.Gravity == 0 {
		cfg.Gravity = DefaultGravity
	}
	s := &Session{cfg: cfg}
	s.world = initialWorld(cfg)
	return s
}

func initialWorld(cfg Config) World {
	var w World
	for i := range w.Players {
		// Spread spawn points so players never start stacked.
		w.Players[i].Pos = Vec2{X: float64(i+1) * 100, Y: 0}
		w.Players[i].Grounded = true
	}
	return w
}

// Restart resets the world to its initial configured state. The input table
// keeps its activation and character selection so the same players are still
// in the match; transient control state and queued effects are cleared.
func (s *Session) Restart() {
	s.world = initialWorld(s.cfg)
	s.tick = 0
	s.effects = s.effects[:0]
	for i := range s.inputs.Players {
		s.inputs.Players[i].Control = PlayerControl{}
		s.inputs.Players[i].Editor = nil
	}
}

// Tick returns the number of logical steps applied since creation or the last
// Restart.
func (s *Session) Tick() uint64 { return s.tick }

// Config returns the configuration the session was created with.
func (s *Session) Config() Config { return s.cfg }

// World returns a read-only copy of the current world state.
func (s *Session) World() World { return s.world }

// Player returns a copy of one player's dynamic state.
func (s *Session) Player(idx int) PlayerState { return s.world.Players[idx] }

// Input returns a copy of the control record for the given slot. Slot bounds
// are enforced here, by the table size, not by callers.
func (s *Session) Input(idx int) PlayerControl {
	return s.inputs.Players[idx].Control
}

// UpdateInputs gives the caller scoped mutable access to the input table.
func (s *Session) UpdateInputs(fn func(inputs *PlayerInputs)) {
	fn(&s.inputs)
}

// DrainEffects returns all effects queued since the last drain and clears the
// queue. Each effect is observed exactly once.
func (s *Session) DrainEffects() []Effect {
	out := s.effects
	s.effects = nil
	return out
}

func (s *Session) queueEffect(e Effect) {
	s.effects = append(s.effects, e)
}

// Advance applies exactly one logical tick: editor commands first, then AI
// control, then player physics. The ctx is accepted for symmetry with the
// session layer; a step itself never blocks.
func (s *Session) Advance(ctx context.Context) {
	_ = ctx
	s.applyEditorCommands()
	s.driveAI()
	s.stepPlayers()
	s.tick++
}
