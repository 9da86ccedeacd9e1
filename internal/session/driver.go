package session

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/konosubakonoakua/jumpy/core"
	"github.com/konosubakonoakua/jumpy/internal/logging"
)

// AudioSink plays sound effects drained from the simulation.
type AudioSink interface {
	PlaySound(source string, volume float64)
}

// Shaker receives camera-shake effects. Optional.
type Shaker interface {
	Shake(intensity float64)
}

// Driver is the per-real-frame orchestration: ensure a minimum player count,
// collect input, advance the simulation zero or more steps, and flush the
// effect queue, in that fixed order.
type Driver struct {
	mgr        *Manager
	audio      AudioSink
	shaker     Shaker
	collectors []InputCollector
	log        logging.Logger
	metrics    Metrics
	tracer     trace.Tracer

	// editorPending holds editor commands queued since the last frame.
	// They are taken at most once per frame and only merged into slot 0 of
	// local sessions; editor control has no network pathway.
	editorPending []core.EditorCommand
}

// DriverOption customises Driver construction.
type DriverOption func(*Driver)

// WithAudio attaches a sound sink for drained effects.
func WithAudio(a AudioSink) DriverOption {
	return func(d *Driver) { d.audio = a }
}

// WithShaker attaches a camera-shake sink for drained effects.
func WithShaker(s Shaker) DriverOption {
	return func(d *Driver) { d.shaker = s }
}

// WithCollectors registers the per-slot input collectors polled every frame.
func WithCollectors(collectors ...InputCollector) DriverOption {
	return func(d *Driver) { d.collectors = collectors }
}

// WithDriverMetrics attaches a metrics recorder.
func WithDriverMetrics(m Metrics) DriverOption {
	return func(d *Driver) { d.metrics = m }
}

// NewDriver builds a driver over the manager's session slot.
func NewDriver(mgr *Manager, log logging.Logger, opts ...DriverOption) *Driver {
	if log == nil {
		log = logging.Noop()
	}
	d := &Driver{
		mgr:    mgr,
		log:    log,
		tracer: otel.Tracer("github.com/konosubakonoakua/jumpy/internal/session"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// QueueEditorCommand queues an editor command for the next frame.
func (d *Driver) QueueEditorCommand(cmd core.EditorCommand) {
	d.editorPending = append(d.editorPending, cmd)
}

func (d *Driver) takeEditorInput() []core.EditorCommand {
	cmds := d.editorPending
	d.editorPending = nil
	return cmds
}

// Frame runs one real-frame update. It does nothing unless a session exists
// and the presentation is in the playing state. The session is taken out of
// the manager's slot for the duration of the frame and put back only when
// every authorized step succeeded.
func (d *Driver) Frame(ctx context.Context, now time.Time) {
	if d.mgr.State() != InGame || d.mgr.PlayState() != Playing || d.mgr.Session() == nil {
		return
	}

	ctx, span := d.tracer.Start(ctx, "session.frame")
	defer span.End()

	start := time.Now()
	sess := d.mgr.take()
	ctx = logging.ContextWithMatchID(ctx, sess.ID())
	steps := 0

	for {
		decision := sess.runner.RunCriteria(now)
		if decision == DontStep {
			break
		}

		if err := d.step(ctx, sess); err != nil {
			if !errors.Is(err, ErrDisconnected) {
				// Frame context canceled; keep the session for the
				// next frame.
				d.mgr.putBack(sess)
				return
			}
			// Disconnected: the session is dropped, never put back.
			span.SetAttributes(attribute.Bool("disconnected", true))
			d.mgr.handleDisconnect(ctx, sess)
			return
		}
		steps++

		if decision == StepOnce {
			break
		}
	}

	d.mgr.putBack(sess)
	span.SetAttributes(attribute.Int("steps", steps))
	if d.metrics != nil {
		d.metrics.ObserveFrame(time.Since(start).Seconds())
	}
}

// step runs one authorized simulation update in the fixed order the session
// schedule requires.
func (d *Driver) step(ctx context.Context, sess *Session) error {
	d.ensureTwoPlayers(sess)
	d.collectInput(sess)

	if err := sess.runner.Advance(ctx); err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.StepAdvanced()
	}

	d.playEffects(sess)
	return nil
}

// ensureTwoPlayers activates slots 0 and 1 with the first two configured
// characters whenever the match is playing with no active slot. This covers
// entry points, like the editor, that skip the player-selection flow.
func (d *Driver) ensureTwoPlayers(sess *Session) {
	meta := d.mgr.Meta()
	sess.runner.Core().UpdateInputs(func(in *core.PlayerInputs) {
		if in.ActiveCount() > 0 {
			if d.metrics != nil {
				d.metrics.SetActivePlayers(in.ActiveCount())
			}
			return
		}
		for i := 0; i < 2 && i < len(meta.Players); i++ {
			in.Players[i].Active = true
			in.Players[i].Character = meta.Players[i].ID
		}
		if d.metrics != nil {
			d.metrics.SetActivePlayers(in.ActiveCount())
		}
	})
}

// playEffects drains the core's effect queue and forwards each effect to its
// presentation sink exactly once.
func (d *Driver) playEffects(sess *Session) {
	for _, effect := range sess.runner.Core().DrainEffects() {
		switch effect.Kind {
		case core.EffectPlaySound:
			if d.audio != nil {
				d.audio.PlaySound(effect.Sound, effect.Volume)
			}
		case core.EffectCameraShake:
			if d.shaker != nil {
				d.shaker.Shake(effect.Intensity)
			}
		default:
			d.log.Warn(context.Background(), "dropping unknown effect",
				logging.Int("kind", int(effect.Kind)))
		}
	}
}
