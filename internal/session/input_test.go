package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/konosubakonoakua/jumpy/core"
	"github.com/konosubakonoakua/jumpy/internal/logging"
	"github.com/konosubakonoakua/jumpy/timectrl"
)

func TestEdgeTriggersFireExactlyOnTransition(t *testing.T) {
	var control core.PlayerControl
	src := &fakeSource{pressed: map[Action]bool{}}

	// Released: no edge.
	applyActionState(&control, src)
	if control.JumpJustPressed {
		t.Fatal("edge fired while released")
	}

	// Press: edge fires once.
	src.pressed[ActionJump] = true
	applyActionState(&control, src)
	if !control.JumpJustPressed || !control.JumpPressed {
		t.Fatalf("expected jump edge on transition, got %+v", control)
	}

	// Held: edge clears, raw state stays.
	applyActionState(&control, src)
	if control.JumpJustPressed {
		t.Fatal("edge persisted while held")
	}
	if !control.JumpPressed {
		t.Fatal("raw pressed state lost while held")
	}

	// Release then press again: edge fires again.
	src.pressed[ActionJump] = false
	applyActionState(&control, src)
	src.pressed[ActionJump] = true
	applyActionState(&control, src)
	if !control.JumpJustPressed {
		t.Fatal("edge missing on second transition")
	}
}

func TestJustMovedEdge(t *testing.T) {
	var control core.PlayerControl
	src := &fakeSource{pressed: map[Action]bool{}}

	applyActionState(&control, src)
	if control.JustMoved {
		t.Fatal("JustMoved fired with no movement")
	}

	src.axis = core.Vec2{X: 0.7}
	applyActionState(&control, src)
	if !control.JustMoved {
		t.Fatal("JustMoved missing on movement start")
	}

	applyActionState(&control, src)
	if control.JustMoved {
		t.Fatal("JustMoved persisted during sustained movement")
	}
}

func TestNetworkInputRemapsOntoLocalSlot(t *testing.T) {
	for k := 0; k < core.MaxPlayers; k++ {
		t.Run(fmt.Sprintf("slot %d", k), func(t *testing.T) {
			transport := &fakeTransport{localIdx: k, stepsPerAdvance: 1}
			runner := NewNetworkRunner(testConfig(), transport, logging.Noop())
			sess := &Session{runner: runner}

			mgr := NewManager(testConfig().Meta, nil, logging.Noop())
			driver := NewDriver(mgr, logging.Noop(), WithCollectors(
				InputCollector{Slot: 0, Source: &fakeSource{
					pressed: map[Action]bool{ActionShoot: true},
					axis:    core.Vec2{X: 1},
				}},
				// A second local collector must be ignored in network games.
				InputCollector{Slot: 1, Source: &fakeSource{
					pressed: map[Action]bool{ActionJump: true},
				}},
			))

			driver.collectInput(sess)

			got := runner.Core().Input(k)
			if !got.ShootPressed || !got.ShootJustPressed {
				t.Fatalf("slot %d missing shoot input: %+v", k, got)
			}
			for other := 0; other < core.MaxPlayers; other++ {
				if other == k {
					continue
				}
				if ctl := runner.Core().Input(other); ctl != (core.PlayerControl{}) {
					t.Fatalf("slot %d touched: %+v", other, ctl)
				}
			}
		})
	}
}

func TestNetworkRemappedEdgesStayCorrect(t *testing.T) {
	transport := &fakeTransport{localIdx: 2, stepsPerAdvance: 1}
	runner := NewNetworkRunner(testConfig(), transport, logging.Noop())
	sess := &Session{runner: runner}

	src := &fakeSource{pressed: map[Action]bool{ActionJump: true}}
	mgr := NewManager(testConfig().Meta, nil, logging.Noop())
	driver := NewDriver(mgr, logging.Noop(), WithCollectors(
		InputCollector{Slot: 0, Source: src},
	))

	driver.collectInput(sess)
	if !runner.Core().Input(2).JumpJustPressed {
		t.Fatal("first collection missing jump edge")
	}

	// Held across a second collection: the edge must clear even though the
	// write target is a remapped slot.
	driver.collectInput(sess)
	if runner.Core().Input(2).JumpJustPressed {
		t.Fatal("jump edge persisted on remapped slot while held")
	}
}

func TestAISlotsAreNeverCollected(t *testing.T) {
	mgr := NewManager(testConfig().Meta, nil, logging.Noop(),
		WithClock(timectrl.NewManual(time.Unix(0, 0))))
	driver := NewDriver(mgr, logging.Noop(), WithCollectors(
		InputCollector{Slot: 0, Source: &fakeSource{
			pressed: map[Action]bool{ActionJump: true},
		}},
	))
	mgr.StartLocal(testConfig())

	sess := mgr.Session()
	sess.Runner().Core().UpdateInputs(func(in *core.PlayerInputs) {
		in.Players[0].IsAI = true
	})

	driver.collectInput(sess)

	if ctl := sess.Runner().Core().Input(0); ctl.JumpPressed {
		t.Fatalf("AI slot received local input: %+v", ctl)
	}
}

func TestEditorInputIsLocalOnly(t *testing.T) {
	cmd := core.EditorCommand{Kind: core.EditorSpawnElement, Element: "crate"}

	t.Run("local sessions receive editor commands on slot 0", func(t *testing.T) {
		mgr := NewManager(testConfig().Meta, nil, logging.Noop(),
			WithClock(timectrl.NewManual(time.Unix(0, 0))))
		driver := NewDriver(mgr, logging.Noop())
		mgr.StartLocal(testConfig())

		driver.QueueEditorCommand(cmd)
		driver.collectInput(mgr.Session())

		var editor []core.EditorCommand
		mgr.Session().Runner().Core().UpdateInputs(func(in *core.PlayerInputs) {
			editor = in.Players[0].Editor
		})
		if len(editor) != 1 || editor[0].Element != "crate" {
			t.Fatalf("editor input = %+v, want the queued crate spawn", editor)
		}
		if len(driver.editorPending) != 0 {
			t.Fatal("editor queue not consumed for local session")
		}
	})

	t.Run("network sessions leave editor commands queued", func(t *testing.T) {
		transport := &fakeTransport{localIdx: 1, stepsPerAdvance: 1}
		runner := NewNetworkRunner(testConfig(), transport, logging.Noop())
		sess := &Session{runner: runner}

		mgr := NewManager(testConfig().Meta, nil, logging.Noop())
		driver := NewDriver(mgr, logging.Noop())

		driver.QueueEditorCommand(cmd)
		driver.collectInput(sess)

		var editor []core.EditorCommand
		runner.Core().UpdateInputs(func(in *core.PlayerInputs) {
			editor = in.Players[0].Editor
		})
		if len(editor) != 0 {
			t.Fatalf("editor input leaked into a network session: %+v", editor)
		}
		if len(driver.editorPending) != 1 {
			t.Fatal("editor queue consumed for a network session")
		}
	})
}

func TestNetworkAdvanceAppliesRemoteControls(t *testing.T) {
	remote := map[int]core.PlayerControl{
		0: {MoveDirection: core.Vec2{X: -1}, GrabPressed: true},
	}
	transport := &fakeTransport{localIdx: 1, stepsPerAdvance: 2, remote: remote}
	runner := NewNetworkRunner(testConfig(), transport, logging.Noop())

	localControl := core.PlayerControl{MoveDirection: core.Vec2{X: 1}}
	runner.SetPlayerInput(1, localControl)

	if err := runner.Advance(t.Context()); err != nil {
		t.Fatalf("Advance() = %v", err)
	}

	if got := runner.Core().Tick(); got != 2 {
		t.Fatalf("Tick() = %d, want 2 (transport authorized two steps)", got)
	}
	if got := runner.Core().Input(0); !got.GrabPressed {
		t.Fatalf("remote control not applied: %+v", got)
	}
	// The transport supplied no slot-1 control, so the local record stands.
	if got := runner.Core().Input(1); got != localControl {
		t.Fatalf("local slot clobbered: %+v", got)
	}
	if transport.lastLocal != localControl {
		t.Fatalf("local control not handed to transport: %+v", transport.lastLocal)
	}
}

func TestNetworkAdvanceTransportControlsLocalSlot(t *testing.T) {
	// A lockstep transport replays the control it buffered when the tick
	// was published, which wins over whatever the live local control is by
	// the time the tick actually steps.
	buffered := core.PlayerControl{MoveDirection: core.Vec2{X: -1}}
	transport := &fakeTransport{
		localIdx:        1,
		stepsPerAdvance: 1,
		remote:          map[int]core.PlayerControl{1: buffered},
	}
	runner := NewNetworkRunner(testConfig(), transport, logging.Noop())
	runner.SetPlayerInput(1, core.PlayerControl{MoveDirection: core.Vec2{X: 1}})

	if err := runner.Advance(t.Context()); err != nil {
		t.Fatalf("Advance() = %v", err)
	}
	if got := runner.Core().Input(1); got != buffered {
		t.Fatalf("local slot = %+v, want the transport's buffered control %+v", got, buffered)
	}
}

func TestNetworkAdvanceContextCancelIsNotDisconnect(t *testing.T) {
	transport := &fakeTransport{localIdx: 1, err: context.Canceled}
	runner := NewNetworkRunner(testConfig(), transport, logging.Noop())

	err := runner.Advance(t.Context())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Advance() = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrDisconnected) {
		t.Fatal("context cancellation reported as a disconnect")
	}
}
