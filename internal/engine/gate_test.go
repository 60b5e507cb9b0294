package engine

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestGateFirstTriggerWins(t *testing.T) {
	var g Gate

	if !g.TryComplete(TriggerSubmit) {
		t.Fatal("first TryComplete returned false")
	}
	if g.TryComplete(TriggerTimeout) {
		t.Error("second TryComplete returned true")
	}
	if g.TryComplete(TriggerForfeit) {
		t.Error("third TryComplete returned true")
	}

	winner, ok := g.Winner()
	if !ok || winner != TriggerSubmit {
		t.Errorf("Winner() = %q, %v, want %q, true", winner, ok, TriggerSubmit)
	}
}

func TestGateConcurrentTriggers(t *testing.T) {
	var g Gate
	var wins int64

	triggers := []Trigger{TriggerSubmit, TriggerTimeout, TriggerForfeit}
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(tr Trigger) {
			defer wg.Done()
			if g.TryComplete(tr) {
				atomic.AddInt64(&wins, 1)
			}
		}(triggers[i%len(triggers)])
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("%d triggers won the gate, want exactly 1", wins)
	}
}

func TestGateRearm(t *testing.T) {
	var g Gate

	g.TryComplete(TriggerTimeout)
	g.Rearm()

	if g.Completed() {
		t.Error("Completed() = true after Rearm")
	}
	if _, ok := g.Winner(); ok {
		t.Error("Winner() reports a winner after Rearm")
	}
	if !g.TryComplete(TriggerSubmit) {
		t.Error("TryComplete returned false on a re-armed gate")
	}
}
