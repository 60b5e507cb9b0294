package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mkor14/veracity/internal/models"
)

// State identifies where the controller is in the round lifecycle.
type State string

const (
	StateIdle       State = "IDLE"
	StateActive     State = "ACTIVE"
	StateCompleting State = "COMPLETING"
	StateTerminal   State = "TERMINAL"
)

var (
	ErrNotActive         = errors.New("no active round")
	ErrNotTerminal       = errors.New("no outcome awaiting acknowledgment")
	ErrNoVerdict         = errors.New("no verdict chosen")
	ErrInvalidVerdict    = errors.New("invalid verdict")
	ErrInvalidConfidence = errors.New("confidence must be 1, 2 or 3")
	ErrUnknownDifficulty = errors.New("no config for claim difficulty")
)

// Hooks are the controller's callbacks to its host. Hooks are invoked
// outside the controller's lock, so a hook may call back into the
// controller, for example to acknowledge an outcome and present the next
// claim. Nil hooks are skipped.
type Hooks struct {
	OnTick    func(remainingSeconds int)
	OnWarn    func(violations int)
	OnOutcome func(models.RoundOutcome)
}

// Controller runs one round at a time: it starts the countdown and the
// integrity monitor when a claim is presented, accepts verdict and
// confidence input while the round is active, and resolves the race between
// the three completion triggers (manual submit, clock expiry, forced
// forfeiture) so that exactly one RoundOutcome is produced per round.
//
// Host calls and clock callbacks may arrive on different goroutines; the
// controller serializes them and discards clock signals from superseded
// round generations.
type Controller struct {
	cfg   Config
	hooks Hooks
	clock clockwork.Clock

	countdown *Countdown
	monitor   *Monitor
	gate      *Gate

	mu         sync.Mutex
	state      State
	generation uint64
	claim      models.Claim
	difficulty DifficultyConfig
	verdict    models.Verdict
	confidence int
	startedAt  time.Time
	outcome    *models.RoundOutcome
}

// NewController builds a round controller. The clock drives the countdown
// and elapsed-time measurement; pass a clockwork.FakeClock in tests.
func NewController(cfg Config, hooks Hooks, clock clockwork.Clock) *Controller {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &Controller{
		cfg:       cfg,
		hooks:     hooks,
		clock:     clock,
		countdown: NewCountdown(clock),
		gate:      &Gate{},
		state:     StateIdle,
	}
	c.monitor = NewMonitor(cfg.FocusThreshold, c.handleWarn, c.handleForcedForfeit)
	return c
}

// PresentClaim starts a new round for the given claim. Any round still in
// flight is torn down first: the countdown is canceled, the monitor and
// gate are re-armed, and the round generation advances so that stale clock
// signals from the old round are discarded.
func (c *Controller) PresentClaim(claim models.Claim) error {
	c.mu.Lock()
	dc, ok := c.cfg.Difficulty[claim.Difficulty]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDifficulty, claim.Difficulty)
	}

	c.generation++
	gen := c.generation
	c.countdown.Cancel()
	c.monitor.Reset()
	c.gate.Rearm()

	c.claim = claim
	c.difficulty = dc
	c.verdict = models.VerdictUnset
	c.confidence = 0
	c.outcome = nil
	c.startedAt = c.clock.Now()
	c.state = StateActive

	c.monitor.Activate()
	c.countdown.Start(dc.DiscussTime,
		func(remaining int) { c.handleTick(gen, remaining) },
		func() { c.handleExpiry(gen) },
	)
	c.mu.Unlock()

	log.Debug().
		Str("claim_id", claim.ID.String()).
		Str("difficulty", string(claim.Difficulty)).
		Dur("discuss_time", dc.DiscussTime).
		Msg("round started")
	return nil
}

// SetVerdict records the team's judgment. Valid only while the round is
// active; the verdict may be changed until the round completes.
func (c *Controller) SetVerdict(v models.Verdict) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidVerdict, v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return ErrNotActive
	}
	c.verdict = v
	return nil
}

// SetConfidence records the team's stake. Valid only while the round is
// active; values outside 1..3 are rejected here, never inside scoring.
func (c *Controller) SetConfidence(level int) error {
	if level < 1 || level > 3 {
		return fmt.Errorf("%w: got %d", ErrInvalidConfidence, level)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return ErrNotActive
	}
	c.confidence = level
	return nil
}

// Submit is the manual completion trigger. It requires an active round with
// a verdict chosen; a second submit after the round completed returns
// ErrNotActive and has no further effect.
func (c *Controller) Submit() error {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return ErrNotActive
	}
	if c.verdict == models.VerdictUnset {
		c.mu.Unlock()
		return ErrNoVerdict
	}
	outcome, ok := c.completeLocked(TriggerSubmit, false, "")
	c.mu.Unlock()

	if ok {
		c.deliver(outcome)
	}
	return nil
}

// FocusLost forwards one focus-loss signal from the host's visibility
// detection. Outside an active round it is a no-op.
func (c *Controller) FocusLost() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.monitor.FocusLost()
}

// Acknowledge returns the controller to Idle after the host has consumed
// the round outcome.
func (c *Controller) Acknowledge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateTerminal {
		return ErrNotTerminal
	}
	c.state = StateIdle
	return nil
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Outcome returns the terminal outcome of the current round, if one has
// been produced.
func (c *Controller) Outcome() (models.RoundOutcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outcome == nil {
		return models.RoundOutcome{}, false
	}
	return *c.outcome, true
}

// Violations returns the focus-loss count of the current round.
func (c *Controller) Violations() int {
	return c.monitor.Violations()
}

// handleTick relays a countdown tick to the host unless it belongs to a
// superseded round generation or the round already completed.
func (c *Controller) handleTick(gen uint64, remaining int) {
	c.mu.Lock()
	if gen != c.generation || c.state != StateActive {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if c.hooks.OnTick != nil {
		c.hooks.OnTick(remaining)
	}
}

// handleExpiry resolves the round when the countdown deadline passes. With
// no verdict chosen the round forfeits as a time-out with a fallback
// confidence; with a verdict on the table it scores normally at full
// elapsed time.
func (c *Controller) handleExpiry(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || c.state != StateActive {
		c.mu.Unlock()
		log.Debug().Uint64("generation", gen).Msg("stale clock expiry discarded")
		return
	}

	var (
		outcome models.RoundOutcome
		ok      bool
	)
	if c.verdict == models.VerdictUnset {
		outcome, ok = c.completeLocked(TriggerTimeout, true, models.ForfeitReasonTimeout)
	} else {
		outcome, ok = c.completeLocked(TriggerTimeout, false, "")
	}
	c.mu.Unlock()

	if ok {
		c.deliver(outcome)
	}
}

// handleWarn relays a monitor warning to the host.
func (c *Controller) handleWarn(count int) {
	if c.hooks.OnWarn != nil {
		c.hooks.OnWarn(count)
	}
}

// handleForcedForfeit resolves the round when the monitor trips. The
// forfeit wins over an imminent clock expiry because it claims the gate
// first.
func (c *Controller) handleForcedForfeit() {
	c.mu.Lock()
	if c.state != StateActive {
		c.mu.Unlock()
		return
	}
	outcome, ok := c.completeLocked(TriggerForfeit, true, models.ForfeitReasonTabSwitch)
	c.mu.Unlock()

	if ok {
		c.deliver(outcome)
	}
}

// completeLocked resolves the round for the winning trigger. The caller
// holds c.mu with the controller in StateActive. The gate stays the final
// authority: if it rejects the trigger, nothing happens.
func (c *Controller) completeLocked(t Trigger, forfeited bool, reason models.ForfeitReason) (models.RoundOutcome, bool) {
	if !c.gate.TryComplete(t) {
		return models.RoundOutcome{}, false
	}
	c.state = StateCompleting
	c.countdown.Cancel()
	c.monitor.Deactivate()

	elapsed := c.clock.Now().Sub(c.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > c.difficulty.DiscussTime {
		elapsed = c.difficulty.DiscussTime
	}

	confidence := c.confidence
	if confidence == 0 {
		confidence = 1
	}

	outcome := models.RoundOutcome{
		ClaimID:        c.claim.ID,
		Verdict:        c.verdict,
		Confidence:     confidence,
		Forfeited:      forfeited,
		ForfeitReason:  reason,
		ElapsedSeconds: int(elapsed.Round(time.Second) / time.Second),
	}

	if forfeited {
		outcome.Points = Forfeit(c.cfg.ForfeitPenalty).Points
	} else {
		correct := c.verdict.Matches(c.claim.CorrectAnswer)
		res := Score(ScoreInput{
			Correct:    correct,
			Confidence: confidence,
			Multiplier: c.difficulty.Multiplier,
			Elapsed:    elapsed,
			Total:      c.difficulty.DiscussTime,
		})
		outcome.Correct = correct
		outcome.Points = res.Points
		outcome.SpeedBonus = res.SpeedBonus
	}

	c.outcome = &outcome
	c.state = StateTerminal
	return outcome, true
}

// deliver logs a terminal outcome and hands it to the host.
func (c *Controller) deliver(outcome models.RoundOutcome) {
	log.Info().
		Str("claim_id", outcome.ClaimID.String()).
		Str("trigger", string(c.winningTrigger())).
		Int("points", outcome.Points).
		Bool("forfeited", outcome.Forfeited).
		Int("elapsed_seconds", outcome.ElapsedSeconds).
		Msg("round completed")

	if c.hooks.OnOutcome != nil {
		c.hooks.OnOutcome(outcome)
	}
}

func (c *Controller) winningTrigger() Trigger {
	t, _ := c.gate.Winner()
	return t
}
