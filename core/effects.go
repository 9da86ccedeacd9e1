package core

// EffectKind tags a presentation side effect emitted by a step.
type EffectKind int

const (
	// EffectPlaySound asks the presentation layer to play a sound.
	EffectPlaySound EffectKind = iota
	// EffectCameraShake asks the presentation layer to shake the camera.
	EffectCameraShake
)

// Effect is one queued presentation side effect. Effects are append-only
// during a step and drained exactly once by the driver after each real frame.
type Effect struct {
	Kind EffectKind

	// Sound fields, valid when Kind == EffectPlaySound.
	Sound  string
	Volume float64

	// Intensity, valid when Kind == EffectCameraShake.
	Intensity float64
}

// Sound names emitted by the built-in step logic.
const (
	SoundJump  = "jump"
	SoundShoot = "shoot"
	SoundGrab  = "grab"
)
