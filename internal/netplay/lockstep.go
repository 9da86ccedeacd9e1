// Package netplay provides a minimal two-player lockstep transport over a
// websocket connection. It satisfies the session layer's Transport contract:
// the session side never sees the wire format, only step invocations, a
// stable local player index, and a disconnect signal.
package netplay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/konosubakonoakua/jumpy/core"
	"github.com/konosubakonoakua/jumpy/internal/logging"
	"github.com/konosubakonoakua/jumpy/internal/session"
)

// ErrPeerGone is returned from Advance once the peer connection is
// irrecoverably lost.
var ErrPeerGone = errors.New("netplay: peer connection lost")

const (
	// hostPlayerIdx and clientPlayerIdx are the input-table slots assigned
	// by the handshake. They are fixed for the lifetime of the match.
	hostPlayerIdx   = 0
	clientPlayerIdx = 1

	// maxStepsPerAdvance bounds how many buffered remote ticks one frame
	// may consume, so a stalled-then-resumed peer doesn't trigger a huge
	// burst of catch-up steps in a single frame.
	maxStepsPerAdvance = 3

	// recvBuffer is how many remote ticks may queue before the read loop
	// applies backpressure.
	recvBuffer = 64
)

// inputMsg is one player's control record for one logical tick.
type inputMsg struct {
	Tick    uint64             `json:"tick"`
	Control core.PlayerControl `json:"control"`
}

// Peer is one side of an established lockstep match.
type Peer struct {
	conn      *websocket.Conn
	localIdx  int
	remoteIdx int
	log       logging.Logger

	recv chan inputMsg

	// sent buffers locally published controls by tick until that tick is
	// stepped, so tick k always pairs both sides' tick-k controls on both
	// peers. Entries are deleted as their tick steps.
	sent map[uint64]core.PlayerControl

	// held is a remote tick that arrived before the local control for the
	// same tick was published; it steps on a later Advance.
	held *inputMsg

	// sendTick is the next tick a local input will be published for;
	// stepTick is the next tick waiting on remote input. Both only ever
	// advance. Accessed from the frame-loop goroutine only.
	sendTick uint64
	stepTick uint64

	closeOnce sync.Once

	mu      sync.Mutex
	readErr error
}

var _ session.Transport = (*Peer)(nil)

func newPeer(conn *websocket.Conn, localIdx int, log logging.Logger) *Peer {
	if log == nil {
		log = logging.Noop()
	}
	remoteIdx := clientPlayerIdx
	if localIdx == clientPlayerIdx {
		remoteIdx = hostPlayerIdx
	}
	p := &Peer{
		conn:      conn,
		localIdx:  localIdx,
		remoteIdx: remoteIdx,
		log:       log,
		recv:      make(chan inputMsg, recvBuffer),
		sent:      make(map[uint64]core.PlayerControl),
	}
	go p.readLoop()
	return p
}

func (p *Peer) readLoop() {
	for {
		var msg inputMsg
		if err := p.conn.ReadJSON(&msg); err != nil {
			p.mu.Lock()
			p.readErr = err
			p.mu.Unlock()
			close(p.recv)
			return
		}
		p.recv <- msg
	}
}

// LocalPlayerIdx implements session.Transport.
func (p *Peer) LocalPlayerIdx() int { return p.localIdx }

// Advance implements session.Transport. It publishes the local control for
// the next unsent tick, then steps as many in-order ticks as both sides have
// published controls for, up to maxStepsPerAdvance. Each step supplies the
// tick's buffered local control alongside the remote one, so both peers feed
// identical control pairs into tick k even when the live local control has
// changed since tick k was published. Steps that can't run yet simply don't:
// lockstep absorbs latency by stepping zero times this frame and catching up
// later.
func (p *Peer) Advance(ctx context.Context, local core.PlayerControl, step func(controls map[int]core.PlayerControl)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.conn.WriteJSON(inputMsg{Tick: p.sendTick, Control: local}); err != nil {
		p.log.Error(ctx, "failed to publish local input", logging.Err(err))
		return fmt.Errorf("%w: %v", ErrPeerGone, err)
	}
	p.sent[p.sendTick] = local
	p.sendTick++

	steps := 0
	for steps < maxStepsPerAdvance {
		msg, ok, err := p.nextRemote()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if msg.Tick < p.stepTick {
			// Duplicate or stale tick; drop it.
			continue
		}
		localCtl, published := p.sent[msg.Tick]
		if !published {
			// The peer ran ahead of our publish cadence; hold its tick
			// until a later Advance has published ours for it.
			held := msg
			p.held = &held
			return nil
		}
		step(map[int]core.PlayerControl{
			p.localIdx:  localCtl,
			p.remoteIdx: msg.Control,
		})
		delete(p.sent, msg.Tick)
		p.stepTick = msg.Tick + 1
		steps++
	}
	return nil
}

func (p *Peer) nextRemote() (inputMsg, bool, error) {
	if p.held != nil {
		msg := *p.held
		p.held = nil
		return msg, true, nil
	}
	select {
	case msg, ok := <-p.recv:
		if !ok {
			p.mu.Lock()
			err := p.readErr
			p.mu.Unlock()
			return inputMsg{}, false, fmt.Errorf("%w: %v", ErrPeerGone, err)
		}
		return msg, true, nil
	default:
		return inputMsg{}, false, nil
	}
}

// Close implements session.Transport.
func (p *Peer) Close() error {
	var err error
	p.closeOnce.Do(func() {
		_ = p.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
			time.Now().Add(time.Second))
		err = p.conn.Close()
	})
	return err
}
