package session

import (
	"context"
	"testing"
	"time"

	"github.com/konosubakonoakua/jumpy/core"
	"github.com/konosubakonoakua/jumpy/internal/logging"
	"github.com/konosubakonoakua/jumpy/timectrl"
)

func newLocalFixture(t *testing.T, metrics Metrics) (*Manager, *Driver, *fakeCamera) {
	t.Helper()
	camera := &fakeCamera{active: true}
	opts := []ManagerOption{WithClock(timectrl.NewManual(time.Unix(0, 0)))}
	if metrics != nil {
		opts = append(opts, WithMetrics(metrics))
	}
	mgr := NewManager(testConfig().Meta, camera, logging.Noop(), opts...)

	driverOpts := []DriverOption{}
	if metrics != nil {
		driverOpts = append(driverOpts, WithDriverMetrics(metrics))
	}
	driver := NewDriver(mgr, logging.Noop(), driverOpts...)
	return mgr, driver, camera
}

func TestStartLocalDeactivatesMenuCamera(t *testing.T) {
	mgr, _, camera := newLocalFixture(t, nil)

	if !camera.active {
		t.Fatal("menu camera should start active")
	}
	mgr.StartLocal(testConfig())
	if camera.active {
		t.Fatal("menu camera still active after StartLocal")
	}
	if mgr.State() != InGame {
		t.Fatalf("State() = %v, want InGame", mgr.State())
	}

	mgr.Stop()
	if !camera.active {
		t.Fatal("menu camera not reactivated after Stop")
	}
	if mgr.Session() != nil {
		t.Fatal("session survived Stop")
	}
}

func TestEachStartAssignsDistinctMatchID(t *testing.T) {
	mgr, _, _ := newLocalFixture(t, nil)

	mgr.StartLocal(testConfig())
	first := mgr.Session().ID()
	if first == "" {
		t.Fatal("session started without a match ID")
	}

	mgr.StartLocal(testConfig())
	if second := mgr.Session().ID(); second == first {
		t.Fatalf("second session reused match ID %q", second)
	}
}

func TestTwoPlayerFloor(t *testing.T) {
	mgr, driver, _ := newLocalFixture(t, nil)
	mgr.StartLocal(testConfig())

	ctx := t.Context()
	now := time.Unix(1000, 0)
	driver.Frame(ctx, now)
	driver.Frame(ctx, now.Add(2*core.Step))

	var inputs core.PlayerInputs
	mgr.Session().Runner().Core().UpdateInputs(func(in *core.PlayerInputs) {
		inputs = *in
	})

	if !inputs.Players[0].Active || !inputs.Players[1].Active {
		t.Fatalf("slots 0 and 1 not active: %+v", inputs.Players[:2])
	}
	if inputs.Players[0].Character == "" || inputs.Players[1].Character == "" {
		t.Fatal("auto-assigned slots have no character")
	}
	for i := 2; i < core.MaxPlayers; i++ {
		if inputs.Players[i].Active {
			t.Fatalf("slot %d unexpectedly active", i)
		}
	}
}

func TestDisconnectTearsDownSession(t *testing.T) {
	metrics := &countingMetrics{}
	mgr, driver, camera := newLocalFixture(t, metrics)

	transport := &fakeTransport{localIdx: 1, err: errPeerGone}
	mgr.StartNetwork(testConfig(), transport)
	if camera.active {
		t.Fatal("menu camera still active after StartNetwork")
	}

	ctx := t.Context()
	driver.Frame(ctx, time.Unix(1000, 0))

	if mgr.Session() != nil {
		t.Fatal("session survived a disconnect")
	}
	if !camera.active {
		t.Fatal("menu camera not reactivated after disconnect")
	}
	if mgr.State() != MainMenu {
		t.Fatalf("State() = %v, want MainMenu", mgr.State())
	}
	if !transport.closed {
		t.Fatal("transport not closed on disconnect")
	}
	if len(metrics.ended) != 1 || metrics.ended[0] != "disconnected" {
		t.Fatalf("ended = %v, want [disconnected]", metrics.ended)
	}

	// No further advance without a new start.
	before := transport.advanceCalls
	driver.Frame(ctx, time.Unix(1001, 0))
	if transport.advanceCalls != before {
		t.Fatal("driver advanced a torn-down session")
	}
}

func TestCanceledFrameKeepsSession(t *testing.T) {
	metrics := &countingMetrics{}
	mgr, driver, camera := newLocalFixture(t, metrics)
	transport := &fakeTransport{localIdx: 1, err: context.Canceled}
	mgr.StartNetwork(testConfig(), transport)

	sess := mgr.Session()
	driver.Frame(t.Context(), time.Unix(1000, 0))

	if mgr.Session() != sess {
		t.Fatal("canceled frame tore down the session")
	}
	if camera.active {
		t.Fatal("menu camera reactivated on a canceled frame")
	}
	if mgr.State() != InGame {
		t.Fatalf("State() = %v, want InGame", mgr.State())
	}
	if transport.closed {
		t.Fatal("transport closed on a canceled frame")
	}
	if len(metrics.ended) != 0 {
		t.Fatalf("ended = %v, want no session-ended records", metrics.ended)
	}
}

func TestFrameReturnsSessionIntactOnSuccess(t *testing.T) {
	mgr, driver, _ := newLocalFixture(t, nil)
	transport := &fakeTransport{localIdx: 1, stepsPerAdvance: 1}
	mgr.StartNetwork(testConfig(), transport)

	sess := mgr.Session()
	driver.Frame(t.Context(), time.Unix(1000, 0))

	if mgr.Session() != sess {
		t.Fatal("session identity changed across a successful frame")
	}
	if transport.advanceCalls != 1 {
		t.Fatalf("advanceCalls = %d, want 1", transport.advanceCalls)
	}
}

func TestRestartPreservesRunnerIdentity(t *testing.T) {
	mgr, driver, _ := newLocalFixture(t, nil)
	mgr.StartLocal(testConfig())

	ctx := t.Context()
	now := time.Unix(1000, 0)
	driver.Frame(ctx, now)
	for i := 0; i < 10; i++ {
		now = now.Add(core.Step)
		driver.Frame(ctx, now)
	}

	sess := mgr.Session()
	runner := sess.Runner()
	if runner.Core().Tick() == 0 {
		t.Fatal("expected the simulation to have advanced before restart")
	}

	mgr.Restart()

	if mgr.Session() != sess || mgr.Session().Runner() != runner {
		t.Fatal("restart changed session or runner identity")
	}
	if got := runner.Core().Tick(); got != 0 {
		t.Fatalf("Tick() = %d after restart, want 0", got)
	}
}

func TestDriverDrainsEffectsOncePerFrame(t *testing.T) {
	mgr, _, _ := newLocalFixture(t, nil)
	audio := &fakeAudio{}
	driver := NewDriver(mgr, logging.Noop(), WithAudio(audio), WithCollectors(
		InputCollector{Slot: 0, Source: &fakeSource{pressed: map[Action]bool{ActionJump: true}}},
	))
	mgr.StartLocal(testConfig())

	ctx := t.Context()
	now := time.Unix(1000, 0)
	driver.Frame(ctx, now)
	now = now.Add(2 * core.Step)
	driver.Frame(ctx, now)

	if len(audio.played) != 1 || audio.played[0] != core.SoundJump {
		t.Fatalf("played = %v, want one jump sound", audio.played)
	}

	// Jump held: no new edge, no new sound.
	now = now.Add(core.Step)
	driver.Frame(ctx, now)
	if len(audio.played) != 1 {
		t.Fatalf("held jump replayed sound: %v", audio.played)
	}
}

func TestPausedSessionDoesNotAdvance(t *testing.T) {
	mgr, driver, _ := newLocalFixture(t, nil)
	transport := &fakeTransport{localIdx: 1, stepsPerAdvance: 1}
	mgr.StartNetwork(testConfig(), transport)
	mgr.SetPlayState(Paused)

	driver.Frame(t.Context(), time.Unix(1000, 0))
	if transport.advanceCalls != 0 {
		t.Fatalf("paused session advanced %d times", transport.advanceCalls)
	}
}
