package session

// Metrics receives counters and gauges from the session layer. Implementations
// must tolerate being called from the frame-loop goroutine every frame. A nil
// Metrics is always allowed.
type Metrics interface {
	// StepAdvanced is called once per applied logical step.
	StepAdvanced()
	// CatchupAborted is called when a catch-up burst overran its wall-clock
	// budget and the accumulated debt was dropped.
	CatchupAborted()
	// ObserveFrame records how long one driver frame took, in seconds.
	ObserveFrame(seconds float64)
	// SetActivePlayers reports the current number of active player slots.
	SetActivePlayers(n int)
	// SessionStarted is called when a session begins, labeled by mode
	// ("local" or "network").
	SessionStarted(mode string)
	// SessionEnded is called when a session is stopped or lost, labeled by
	// reason ("stopped" or "disconnected").
	SessionEnded(reason string)
}
