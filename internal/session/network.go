package session

import (
	"context"
	"errors"
	"time"

	"github.com/konosubakonoakua/jumpy/core"
	"github.com/konosubakonoakua/jumpy/internal/logging"
)

// Transport is the contract a network synchronization layer must satisfy for
// the NetworkRunner to drive a match over it. The wire protocol is the
// transport's business; the runner only needs step invocation, a disconnect
// signal, and a stable local slot index.
type Transport interface {
	// LocalPlayerIdx returns the input-table slot assigned to the local
	// participant. It must be stable for the lifetime of the match.
	LocalPlayerIdx() int

	// Advance runs the transport's stepping cadence for one real frame.
	// It passes the local participant's current control outward and calls
	// step once per logical tick it authorizes (zero or more times, to
	// absorb jitter), supplying the authoritative controls for every slot
	// it knows about, the local one included: a lockstep transport buffers
	// the published local control per tick so tick k steps with both
	// sides' tick-k inputs on both peers. A context error is returned
	// as-is; any other error means the peer connection is irrecoverably
	// lost.
	Advance(ctx context.Context, local core.PlayerControl, step func(controls map[int]core.PlayerControl)) error

	// Close tears down the connection.
	Close() error
}

// NetworkRunner drives the simulation through an external lockstep transport.
// The transport owns the stepping cadence; the runner owns the translation
// between transport-provided controls and the core's input table.
type NetworkRunner struct {
	runnerCore

	transport Transport
	localIdx  int
	log       logging.Logger
}

// NewNetworkRunner builds a network runner around a fresh core session and an
// established transport.
func NewNetworkRunner(cfg core.Config, transport Transport, log logging.Logger) *NetworkRunner {
	if log == nil {
		log = logging.Noop()
	}
	return &NetworkRunner{
		runnerCore: runnerCore{core: core.NewSession(cfg)},
		transport:  transport,
		localIdx:   transport.LocalPlayerIdx(),
		log:        log,
	}
}

// Advance delegates the stepping cadence to the transport, applying each
// authorized tick to the shared core. A transport failure is surfaced as
// ErrDisconnected; there is no reconnection at this layer.
func (r *NetworkRunner) Advance(ctx context.Context) error {
	local := r.core.Input(r.localIdx)

	err := r.transport.Advance(ctx, local, func(controls map[int]core.PlayerControl) {
		r.core.UpdateInputs(func(in *core.PlayerInputs) {
			for idx, control := range controls {
				if idx < 0 || idx >= core.MaxPlayers {
					continue
				}
				in.Players[idx].Control = control
			}
		})
		r.core.Advance(ctx)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// A canceled frame is not a lost peer; the session survives
			// and the driver simply skips the frame.
			return err
		}
		r.log.Error(ctx, "network session lost", logging.Err(err))
		return ErrDisconnected
	}
	return nil
}

// RunCriteria always authorizes a single Advance per frame: the transport
// absorbs timing jitter internally by stepping zero or more times inside it.
func (r *NetworkRunner) RunCriteria(now time.Time) StepDecision {
	_ = now
	return StepOnce
}

// NetworkPlayerIdx reports the slot assigned to the local participant.
func (r *NetworkRunner) NetworkPlayerIdx() (int, bool) { return r.localIdx, true }

// Close releases the transport.
func (r *NetworkRunner) Close() error { return r.transport.Close() }
