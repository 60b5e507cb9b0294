package engine

import "testing"

type monitorRecorder struct {
	warns    []int
	forfeits int
}

func (r *monitorRecorder) warn(count int) { r.warns = append(r.warns, count) }
func (r *monitorRecorder) forfeit()       { r.forfeits++ }

func TestMonitorZeroTolerance(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(1, rec.warn, rec.forfeit)
	m.Activate()

	m.FocusLost()
	if len(rec.warns) != 1 || rec.warns[0] != 1 {
		t.Fatalf("warns after first violation = %v, want [1]", rec.warns)
	}
	if rec.forfeits != 1 {
		t.Fatalf("forfeits after first violation = %d, want 1", rec.forfeits)
	}

	// Tripped: the redundant signal is a no-op.
	m.FocusLost()
	if len(rec.warns) != 1 || rec.forfeits != 1 {
		t.Errorf("after redundant signal: warns=%v forfeits=%d, want unchanged", rec.warns, rec.forfeits)
	}
	if m.Violations() != 1 {
		t.Errorf("Violations() = %d, want 1", m.Violations())
	}
}

func TestMonitorEscalatesToThreshold(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(3, rec.warn, rec.forfeit)
	m.Activate()

	m.FocusLost()
	m.FocusLost()
	if rec.forfeits != 0 {
		t.Fatalf("forfeited below the threshold: forfeits=%d", rec.forfeits)
	}

	m.FocusLost()
	if rec.forfeits != 1 {
		t.Fatalf("forfeits at the threshold = %d, want 1", rec.forfeits)
	}

	m.FocusLost()
	want := []int{1, 2, 3}
	if len(rec.warns) != len(want) {
		t.Fatalf("warns = %v, want %v", rec.warns, want)
	}
	for i, w := range want {
		if rec.warns[i] != w {
			t.Errorf("warns[%d] = %d, want %d", i, rec.warns[i], w)
		}
	}
}

func TestMonitorIgnoresSignalsWhileInactive(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(1, rec.warn, rec.forfeit)

	m.FocusLost()
	if len(rec.warns) != 0 || rec.forfeits != 0 {
		t.Fatalf("inactive monitor fired callbacks: warns=%v forfeits=%d", rec.warns, rec.forfeits)
	}

	m.Activate()
	m.Deactivate()
	m.FocusLost()
	if len(rec.warns) != 0 || rec.forfeits != 0 {
		t.Fatalf("deactivated monitor fired callbacks: warns=%v forfeits=%d", rec.warns, rec.forfeits)
	}
}

func TestMonitorReset(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(1, rec.warn, rec.forfeit)
	m.Activate()
	m.FocusLost()

	m.Reset()
	if m.Violations() != 0 {
		t.Fatalf("Violations() after Reset = %d, want 0", m.Violations())
	}

	// Reset leaves the monitor inactive until the next round activates it.
	m.FocusLost()
	if rec.forfeits != 1 {
		t.Fatalf("reset monitor counted a signal while inactive: forfeits=%d", rec.forfeits)
	}

	m.Activate()
	m.FocusLost()
	if rec.forfeits != 2 {
		t.Errorf("forfeits after reset and reactivation = %d, want 2", rec.forfeits)
	}
	if got := rec.warns; len(got) != 2 || got[1] != 1 {
		t.Errorf("warns after reset = %v, want a fresh count of 1", got)
	}
}

func TestMonitorThresholdFloor(t *testing.T) {
	rec := &monitorRecorder{}
	m := NewMonitor(0, rec.warn, rec.forfeit)
	m.Activate()

	m.FocusLost()
	if rec.forfeits != 1 {
		t.Errorf("threshold 0 should act as zero tolerance, forfeits=%d", rec.forfeits)
	}
}
