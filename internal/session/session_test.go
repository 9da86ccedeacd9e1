package session

import (
	"context"
	"errors"
	"sync"

	"github.com/konosubakonoakua/jumpy/core"
)

// Shared test doubles for the session package.

func testConfig() core.Config {
	return core.Config{
		Meta: core.Meta{Players: []core.CharacterMeta{
			{ID: "fishy", Name: "Fishy", MoveSpeed: 120, JumpSpeed: 12},
			{ID: "sharky", Name: "Sharky", MoveSpeed: 100, JumpSpeed: 14},
			{ID: "orcy", Name: "Orcy", MoveSpeed: 90, JumpSpeed: 16},
		}},
		Map: "test-arena",
	}
}

type fakeCamera struct {
	active bool
}

func (c *fakeCamera) SetActive(active bool) { c.active = active }

type fakeAudio struct {
	played []string
}

func (a *fakeAudio) PlaySound(source string, volume float64) {
	a.played = append(a.played, source)
}

// fakeTransport satisfies Transport. Each Advance authorizes stepsPerAdvance
// ticks, or fails with err when set.
type fakeTransport struct {
	localIdx        int
	stepsPerAdvance int
	err             error
	remote          map[int]core.PlayerControl

	advanceCalls int
	closed       bool
	lastLocal    core.PlayerControl
}

func (t *fakeTransport) LocalPlayerIdx() int { return t.localIdx }

func (t *fakeTransport) Advance(ctx context.Context, local core.PlayerControl, step func(map[int]core.PlayerControl)) error {
	t.advanceCalls++
	t.lastLocal = local
	if t.err != nil {
		return t.err
	}
	for i := 0; i < t.stepsPerAdvance; i++ {
		step(t.remote)
	}
	return nil
}

func (t *fakeTransport) Close() error {
	t.closed = true
	return nil
}

var errPeerGone = errors.New("peer gone")

// fakeSource is a scriptable ActionSource.
type fakeSource struct {
	pressed map[Action]bool
	axis    core.Vec2
}

func (s *fakeSource) Pressed(a Action) bool { return s.pressed[a] }
func (s *fakeSource) Axis(a Action) core.Vec2 {
	if a == ActionMove {
		return s.axis
	}
	return core.Vec2{}
}

// countingMetrics records every Metrics callback.
type countingMetrics struct {
	mu             sync.Mutex
	steps          int
	catchupAborts  int
	frames         int
	activePlayers  int
	started, ended []string
}

func (m *countingMetrics) StepAdvanced() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps++
}

func (m *countingMetrics) CatchupAborted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catchupAborts++
}

func (m *countingMetrics) ObserveFrame(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames++
}

func (m *countingMetrics) SetActivePlayers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activePlayers = n
}

func (m *countingMetrics) SessionStarted(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, mode)
}

func (m *countingMetrics) SessionEnded(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = append(m.ended, reason)
}
