package session

import (
	"context"
	"fmt"

	"github.com/konosubakonoakua/jumpy/core"
	"github.com/konosubakonoakua/jumpy/internal/logging"
	"github.com/konosubakonoakua/jumpy/timectrl"
)

// EngineState is the coarse presentation state.
type EngineState int

const (
	// MainMenu means no match is being presented.
	MainMenu EngineState = iota
	// InGame means a match is being presented.
	InGame
)

// PlayState refines InGame.
type PlayState int

const (
	// Playing means the driver advances the session every frame.
	Playing PlayState = iota
	// Paused means the session exists but is not advanced.
	Paused
)

// Camera is the only coupling to the rendering layer the session core needs:
// a boolean active toggle, flipped exactly at session start, stop, and
// disconnect.
type Camera interface {
	SetActive(active bool)
}

// Session is the in-progress game match. Exactly one exists at a time, and it
// exclusively owns its Runner.
type Session struct {
	runner Runner
	id     string
}

// Runner returns the session's runner.
func (s *Session) Runner() Runner { return s.runner }

// ID returns the match identifier assigned at start, used to correlate log
// lines across the session's lifetime.
func (s *Session) ID() string { return s.id }

// Manager creates, restarts, and stops sessions. It holds the single optional
// Session slot; absence of a session implies the menu camera is active.
//
// All methods must be called from the frame-loop goroutine. The slot is
// single-writer by discipline rather than by lock.
type Manager struct {
	meta       core.Meta
	menuCamera Camera
	log        logging.Logger
	metrics    Metrics
	clock      timectrl.Clock

	session *Session
	state   EngineState
	play    PlayState
	matches uint64
}

// ManagerOption customises Manager construction.
type ManagerOption func(*Manager)

// WithMetrics attaches a metrics recorder to the manager and to the runners
// it creates.
func WithMetrics(m Metrics) ManagerOption {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithClock overrides the wall clock used by local runners.
func WithClock(c timectrl.Clock) ManagerOption {
	return func(mgr *Manager) { mgr.clock = c }
}

// NewManager constructs a manager in the main-menu state.
func NewManager(meta core.Meta, menuCamera Camera, log logging.Logger, opts ...ManagerOption) *Manager {
	if log == nil {
		log = logging.Noop()
	}
	m := &Manager{
		meta:       meta,
		menuCamera: menuCamera,
		log:        log,
		clock:      timectrl.System(),
		state:      MainMenu,
		play:       Playing,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Meta returns the match metadata used for auto-assigning characters.
func (m *Manager) Meta() core.Meta { return m.meta }

// State returns the current engine state.
func (m *Manager) State() EngineState { return m.state }

// PlayState returns the current play state.
func (m *Manager) PlayState() PlayState { return m.play }

// SetPlayState pauses or resumes the driver without touching the session.
func (m *Manager) SetPlayState(p PlayState) { m.play = p }

// Session returns the current session, or nil when none is in progress.
func (m *Manager) Session() *Session { return m.session }

// StartLocal begins a local match, replacing any session in progress.
func (m *Manager) StartLocal(cfg core.Config) {
	m.install(&Session{runner: NewLocalRunner(cfg, m.clock, m.log, m.metrics)}, "local")
}

// StartNetwork begins a network match over an established transport,
// replacing any session in progress.
func (m *Manager) StartNetwork(cfg core.Config, transport Transport) {
	m.install(&Session{runner: NewNetworkRunner(cfg, transport, m.log)}, "network")
}

func (m *Manager) install(s *Session, mode string) {
	if m.session != nil {
		_ = m.session.runner.Close()
	}
	m.matches++
	s.id = fmt.Sprintf("%s-%d", mode, m.matches)
	m.session = s
	m.state = InGame
	m.play = Playing
	if m.menuCamera != nil {
		m.menuCamera.SetActive(false)
	}
	if m.metrics != nil {
		m.metrics.SessionStarted(mode)
	}
	ctx := logging.ContextWithMatchID(context.Background(), s.id)
	logging.WithMatchLogger(ctx, m.log).Info(ctx, "session started", logging.String("mode", mode))
}

// Restart resets the current session's simulation without changing the
// session's identity. A no-op when no session exists.
func (m *Manager) Restart() {
	if m.session != nil {
		m.session.runner.Restart()
	}
}

// Stop destroys the session and reactivates the menu camera unconditionally.
func (m *Manager) Stop() {
	if m.session != nil {
		_ = m.session.runner.Close()
		m.session = nil
		if m.metrics != nil {
			m.metrics.SessionEnded("stopped")
		}
	}
	m.state = MainMenu
	if m.menuCamera != nil {
		m.menuCamera.SetActive(true)
	}
}

// take removes the session from the slot, giving the caller exclusive access
// while stepping. The caller must putBack on success and must not on failure,
// so a failed session is never resurrected.
func (m *Manager) take() *Session {
	s := m.session
	m.session = nil
	return s
}

func (m *Manager) putBack(s *Session) {
	m.session = s
}

// handleDisconnect unwinds a lost session: the session is already out of the
// slot and is dropped rather than returned, the presentation is forced back
// to the main menu, and the menu camera is reactivated.
func (m *Manager) handleDisconnect(ctx context.Context, s *Session) {
	_ = s.runner.Close()
	m.state = MainMenu
	m.play = Playing
	if m.menuCamera != nil {
		m.menuCamera.SetActive(true)
	}
	if m.metrics != nil {
		m.metrics.SessionEnded("disconnected")
	}
	logging.WithMatchLogger(ctx, m.log).Error(ctx, "network session disconnected, returning to menu")
}
