package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mkor14/veracity/internal/engine"
	"github.com/mkor14/veracity/internal/events"
	"github.com/mkor14/veracity/internal/models"
)

// RoundView is the live-round portion of a snapshot. The correct answer
// stays out of it; late joiners get the same view as everyone else.
type RoundView struct {
	RoundNumber    int                  `json:"round_number"`
	TeamID         uuid.UUID            `json:"team_id"`
	TeamName       string               `json:"team_name"`
	ClaimID        uuid.UUID            `json:"claim_id"`
	Statement      string               `json:"statement"`
	Difficulty     models.Difficulty    `json:"difficulty"`
	Category       string               `json:"category,omitempty"`
	DiscussSeconds int                  `json:"discuss_seconds"`
	State          engine.State         `json:"state"`
	Violations     int                  `json:"violations"`
	Outcome        *models.RoundOutcome `json:"outcome,omitempty"`
}

// Snapshot is the full game state served to late joiners and reconnects.
type Snapshot struct {
	Game  models.Game `json:"game"`
	Round *RoundView  `json:"round,omitempty"`
}

// SetVerdict records the active team's judgment for the current round.
func (a *App) SetVerdict(id, teamID uuid.UUID, v models.Verdict) error {
	g, err := a.lookup(id)
	if err != nil {
		return err
	}
	if err := g.requireTurn(teamID); err != nil {
		return err
	}
	return g.controller.SetVerdict(v)
}

// SetConfidence records the active team's stake for the current round.
func (a *App) SetConfidence(id, teamID uuid.UUID, level int) error {
	g, err := a.lookup(id)
	if err != nil {
		return err
	}
	if err := g.requireTurn(teamID); err != nil {
		return err
	}
	return g.controller.SetConfidence(level)
}

// Submit locks in the active team's answer and resolves the round.
func (a *App) Submit(id, teamID uuid.UUID) error {
	g, err := a.lookup(id)
	if err != nil {
		return err
	}
	if err := g.requireTurn(teamID); err != nil {
		return err
	}
	return g.controller.Submit()
}

// FocusLost forwards a visibility violation from the active team's client.
func (a *App) FocusLost(id, teamID uuid.UUID) error {
	g, err := a.lookup(id)
	if err != nil {
		return err
	}
	if err := g.requireTurn(teamID); err != nil {
		return err
	}
	g.controller.FocusLost()
	return nil
}

// NextRound acknowledges the finished round and presents the next claim to
// the next team in rotation. It refuses while a round is still running and
// after the final round, which completes the game on its own.
func (a *App) NextRound(id uuid.UUID) error {
	g, err := a.lookup(id)
	if err != nil {
		return err
	}

	g.mu.Lock()
	switch g.game.Status {
	case models.GameStatusCompleted:
		g.mu.Unlock()
		return fmt.Errorf("game %s is completed", id)
	case models.GameStatusLobby:
		g.mu.Unlock()
		return fmt.Errorf("game %s has not started", id)
	}
	if err := g.controller.Acknowledge(); err != nil {
		g.mu.Unlock()
		return fmt.Errorf("round %d still in progress: %w", g.game.RoundNumber, err)
	}
	round, err := a.startRoundLocked(g)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.mu.Unlock()

	a.emit(id, events.TypeRoundStarted, round)
	return nil
}

// Snapshot returns the current game state plus a view of the round in
// flight, if any.
func (a *App) Snapshot(id uuid.UUID) (*Snapshot, error) {
	g, err := a.lookup(id)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	snap := &Snapshot{Game: g.cloneLocked()}
	if g.game.RoundNumber >= 1 && g.game.Status != models.GameStatusLobby {
		claim := g.claims[g.game.RoundNumber-1]
		team := g.currentTeamLocked()
		view := &RoundView{
			RoundNumber:    g.game.RoundNumber,
			TeamID:         team.ID,
			TeamName:       team.Name,
			ClaimID:        claim.ID,
			Statement:      claim.Statement,
			Difficulty:     claim.Difficulty,
			Category:       claim.Category,
			DiscussSeconds: int(a.cfg.Difficulty[claim.Difficulty].DiscussTime / time.Second),
			State:          g.controller.State(),
			Violations:     g.controller.Violations(),
		}
		if outcome, ok := g.controller.Outcome(); ok {
			view.Outcome = &outcome
		}
		snap.Round = view
	}
	return snap, nil
}

// startRoundLocked advances the rotation and presents the next claim. The
// caller holds g.mu with the game in progress and the controller idle.
func (a *App) startRoundLocked(g *liveGame) (events.RoundStartedData, error) {
	g.game.RoundNumber++
	claim := g.claims[g.game.RoundNumber-1]
	team := g.currentTeamLocked()

	if err := g.controller.PresentClaim(claim); err != nil {
		g.game.RoundNumber--
		return events.RoundStartedData{}, fmt.Errorf("failed to present claim: %w", err)
	}

	return events.RoundStartedData{
		RoundNumber:    g.game.RoundNumber,
		TeamID:         team.ID,
		TeamName:       team.Name,
		ClaimID:        claim.ID,
		Statement:      claim.Statement,
		Difficulty:     claim.Difficulty,
		Category:       claim.Category,
		DiscussSeconds: int(a.cfg.Difficulty[claim.Difficulty].DiscussTime / time.Second),
	}, nil
}

// onTick relays the countdown to event consumers.
func (a *App) onTick(g *liveGame, remaining int) {
	g.mu.Lock()
	gameID := g.game.ID
	round := g.game.RoundNumber
	g.mu.Unlock()

	a.emit(gameID, events.TypeTimerTick, events.TimerTickData{
		RoundNumber:      round,
		RemainingSeconds: remaining,
	})
}

// onWarn relays an integrity warning for the active team.
func (a *App) onWarn(g *liveGame, violations int) {
	g.mu.Lock()
	gameID := g.game.ID
	round := g.game.RoundNumber
	team := *g.currentTeamLocked()
	g.mu.Unlock()

	a.emit(gameID, events.TypeIntegrityWarning, events.IntegrityWarningData{
		RoundNumber: round,
		TeamID:      team.ID,
		Violations:  violations,
	})
}

// onOutcome applies a round outcome to the standings and completes the game
// after the final round. It runs on whichever goroutine resolved the round.
func (a *App) onOutcome(g *liveGame, o models.RoundOutcome) {
	g.mu.Lock()
	team := g.currentTeamLocked()
	team.Score += o.Points
	team.RoundsPlayed++
	claim := g.claims[g.game.RoundNumber-1]

	record := models.RoundRecord{
		GameID:      g.game.ID,
		RoundNumber: g.game.RoundNumber,
		TeamID:      team.ID,
		TeamName:    team.Name,
		Outcome:     o,
		CompletedAt: a.clock.Now().UTC(),
	}

	finished := g.game.RoundNumber >= g.game.TotalRounds
	var final models.Game
	if finished {
		now := a.clock.Now().UTC()
		g.game.Status = models.GameStatusCompleted
		g.game.CompletedAt = &now
		final = g.cloneLocked()
	}
	gameID := g.game.ID
	g.mu.Unlock()

	a.emit(gameID, events.TypeRoundCompleted, events.RoundCompletedData{
		Record:        record,
		CorrectAnswer: claim.CorrectAnswer,
		Explanation:   claim.Explanation,
	})
	if finished {
		a.emit(gameID, events.TypeGameCompleted, events.GameCompletedData{Game: final})
		log.Info().
			Str("game_id", gameID.String()).
			Int("rounds", record.RoundNumber).
			Msg("game completed")
	}
}

// requireTurn checks that the given team owns the round in flight.
func (g *liveGame) requireTurn(teamID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.game.Status != models.GameStatusInProgress || g.game.RoundNumber < 1 {
		return fmt.Errorf("game %s has no round in progress", g.game.ID)
	}
	team := g.currentTeamLocked()
	if team.ID != teamID {
		return fmt.Errorf("%w: round %d belongs to %s", ErrNotYourTurn, g.game.RoundNumber, team.Name)
	}
	return nil
}

// currentTeamLocked returns the team whose turn the current round is.
// Rotation is round-robin in team order.
func (g *liveGame) currentTeamLocked() *models.Team {
	return &g.game.Teams[(g.game.RoundNumber-1)%len(g.game.Teams)]
}
