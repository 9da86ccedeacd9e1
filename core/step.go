package core

import "math"

const groundY = 0.0

func (s *Session) characterByID(id string) (CharacterMeta, bool) {
	for _, c := range s.cfg.Meta.Players {
		if c.ID == id {
			return c, true
		}
	}
	return CharacterMeta{}, false
}

// applyEditorCommands drains queued editor commands and applies them before
// the physics step so an edit is visible within the same tick.
func (s *Session) applyEditorCommands() {
	for i := range s.inputs.Players {
		slot := &s.inputs.Players[i]
		for _, cmd := range slot.Editor {
			switch cmd.Kind {
			case EditorSpawnElement:
				s.world.Elements = append(s.world.Elements, Element{Name: cmd.Element, Pos: cmd.Pos})
			case EditorDeleteElement:
				s.deleteElement(cmd.Element)
			case EditorMovePlayer:
				s.world.Players[i].Pos = cmd.Pos
				s.world.Players[i].Vel = Vec2{}
			}
		}
		slot.Editor = nil
	}
}

func (s *Session) deleteElement(name string) {
	kept := s.world.Elements[:0]
	for _, e := range s.world.Elements {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	s.world.Elements = kept
}

// driveAI writes control records for AI slots. AI control is produced here,
// inside the deterministic step, so all peers compute identical AI inputs
// without exchanging them.
func (s *Session) driveAI() {
	for i := range s.inputs.Players {
		slot := &s.inputs.Players[i]
		if !slot.Active || !slot.IsAI || slot.Character == "" {
			continue
		}

		// Patrol: walk one way for two seconds, then the other.
		dir := 1.0
		if (s.tick/(2*FPS))%2 == 1 {
			dir = -1.0
		}
		prev := slot.Control
		slot.Control.MoveDirection = Vec2{X: dir}
		slot.Control.JustMoved = prev.MoveDirection.LenSq() <= math.SmallestNonzeroFloat64

		// Hop at the turn-around tick.
		jump := s.tick%(2*FPS) == 0
		slot.Control.JumpJustPressed = jump && !prev.JumpPressed
		slot.Control.JumpPressed = jump
	}
}

// stepPlayers integrates one fixed step of player movement from the current
// input table. Slots without character metadata are treated as not yet ready
// and skipped; that is never an error.
func (s *Session) stepPlayers() {
	for i := range s.inputs.Players {
		slot := &s.inputs.Players[i]
		if !slot.Active {
			continue
		}
		character, ok := s.characterByID(slot.Character)
		if !ok {
			continue
		}

		p := &s.world.Players[i]
		ctl := slot.Control

		p.Vel.X = ctl.MoveDirection.X * character.MoveSpeed
		if ctl.MoveDirection.X < 0 {
			p.FacingLeft = true
		} else if ctl.MoveDirection.X > 0 {
			p.FacingLeft = false
		}

		if ctl.JumpJustPressed && p.Grounded {
			p.Vel.Y = character.JumpSpeed
			p.Grounded = false
			s.queueEffect(Effect{Kind: EffectPlaySound, Sound: SoundJump, Volume: 1.0})
		}

		if ctl.ShootJustPressed {
			s.queueEffect(Effect{Kind: EffectPlaySound, Sound: SoundShoot, Volume: 0.8})
			s.queueEffect(Effect{Kind: EffectCameraShake, Intensity: 0.5})
		}

		if ctl.GrabJustPressed {
			s.queueEffect(Effect{Kind: EffectPlaySound, Sound: SoundGrab, Volume: 0.6})
		}

		if !p.Grounded {
			p.Vel.Y -= s.cfg.Gravity * StepSeconds
		}

		p.Pos.X += p.Vel.X * StepSeconds
		p.Pos.Y += p.Vel.Y * StepSeconds

		if p.Pos.Y <= groundY {
			p.Pos.Y = groundY
			p.Vel.Y = 0
			p.Grounded = true
		}
	}
}
