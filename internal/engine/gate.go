package engine

import "sync"

// Trigger identifies which completion path claimed a round.
type Trigger string

const (
	TriggerSubmit  Trigger = "submit"
	TriggerTimeout Trigger = "timeout"
	TriggerForfeit Trigger = "forfeit"
)

// Gate is the single-use completion guard for one round. The first
// TryComplete claims the round; every later call is rejected until the gate
// is re-armed at the next round boundary.
type Gate struct {
	mu        sync.Mutex
	completed bool
	winner    Trigger
}

// TryComplete attempts to claim the round for the given trigger. Exactly one
// caller per armed cycle gets true and may build the round outcome; losing
// callers must drop their completion attempt without side effects.
func (g *Gate) TryComplete(t Trigger) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.completed {
		return false
	}
	g.completed = true
	g.winner = t
	return true
}

// Completed reports whether the round has been claimed.
func (g *Gate) Completed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completed
}

// Winner returns the trigger that claimed the round, if any.
func (g *Gate) Winner() (Trigger, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner, g.completed
}

// Rearm resets the gate for the next round.
func (g *Gate) Rearm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed = false
	g.winner = ""
}
