package engine

import "sync"

// Monitor counts focus-loss signals while a round is active. Every
// violation up to and including the threshold invokes warn with the running
// count; reaching the threshold also invokes forfeit, after which the
// monitor is tripped and ignores further signals until Reset.
type Monitor struct {
	mu         sync.Mutex
	threshold  int
	active     bool
	tripped    bool
	violations int

	warn    func(count int)
	forfeit func()
}

// NewMonitor builds a monitor with the given violation threshold. A
// threshold below 1 falls back to 1, zero tolerance. Either callback may be
// nil.
func NewMonitor(threshold int, warn func(count int), forfeit func()) *Monitor {
	if threshold < 1 {
		threshold = 1
	}
	return &Monitor{threshold: threshold, warn: warn, forfeit: forfeit}
}

// Activate starts counting focus-loss signals.
func (m *Monitor) Activate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
}

// Deactivate stops counting without clearing the violation count.
func (m *Monitor) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

// Reset clears all state at the round boundary. The monitor stays inactive
// until the next Activate.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
	m.tripped = false
	m.violations = 0
}

// Violations returns the violation count of the current round.
func (m *Monitor) Violations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.violations
}

// FocusLost records one focus-loss signal. Callbacks run outside the
// monitor's lock so they may call back into the owning controller.
func (m *Monitor) FocusLost() {
	m.mu.Lock()
	if !m.active || m.tripped {
		m.mu.Unlock()
		return
	}
	m.violations++
	count := m.violations
	trip := count >= m.threshold
	if trip {
		m.tripped = true
	}
	m.mu.Unlock()

	if m.warn != nil {
		m.warn(count)
	}
	if trip && m.forfeit != nil {
		m.forfeit()
	}
}
