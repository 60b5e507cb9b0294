package results

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mkor14/veracity/internal/models"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// ResultsRepository defines what the app layer needs from the store.
type ResultsRepository interface {
	UpsertGame(ctx context.Context, game models.Game) error
	RecordRound(ctx context.Context, rec models.RoundRecord) (bool, error)
	CompleteGame(ctx context.Context, game models.Game) error
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	RoundsForGame(ctx context.Context, gameID uuid.UUID) ([]models.RoundRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// GameSummary bundles a stored game with its round history.
type GameSummary struct {
	Game   models.Game          `json:"game"`
	Rounds []models.RoundRecord `json:"rounds"`
}

// App implements results business logic on top of the repository.
type App struct {
	repo ResultsRepository
}

// NewApp creates a new results App.
func NewApp(repo ResultsRepository) *App {
	return &App{repo: repo}
}

// RecordGame stores or refreshes a game row and its teams.
func (a *App) RecordGame(ctx context.Context, game models.Game) error {
	if err := a.validateGame(game); err != nil {
		return fmt.Errorf("invalid game: %w", err)
	}
	if err := a.repo.UpsertGame(ctx, game); err != nil {
		return err
	}
	log.Debug().
		Str("game_id", game.ID.String()).
		Str("status", string(game.Status)).
		Msg("recorded game")
	return nil
}

// RecordRound stores one finished round and updates the team tally.
func (a *App) RecordRound(ctx context.Context, rec models.RoundRecord) error {
	if err := a.validateRoundRecord(rec); err != nil {
		return fmt.Errorf("invalid round record: %w", err)
	}
	inserted, err := a.repo.RecordRound(ctx, rec)
	if err != nil {
		return err
	}
	if !inserted {
		log.Debug().
			Str("game_id", rec.GameID.String()).
			Int("round", rec.RoundNumber).
			Msg("round already recorded, skipping")
		return nil
	}
	log.Info().
		Str("game_id", rec.GameID.String()).
		Int("round", rec.RoundNumber).
		Str("team", rec.TeamName).
		Int("points", rec.Outcome.Points).
		Msg("recorded round result")
	return nil
}

// FinalizeGame marks a game completed and writes the final standings.
func (a *App) FinalizeGame(ctx context.Context, game models.Game) error {
	if err := a.validateGame(game); err != nil {
		return fmt.Errorf("invalid game: %w", err)
	}
	if err := a.repo.CompleteGame(ctx, game); err != nil {
		return err
	}
	log.Info().
		Str("game_id", game.ID.String()).
		Int("teams", len(game.Teams)).
		Msg("finalized game results")
	return nil
}

// GetGameSummary returns a stored game together with its rounds.
func (a *App) GetGameSummary(ctx context.Context, id uuid.UUID) (*GameSummary, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("game_id is required")
	}
	game, err := a.repo.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	rounds, err := a.repo.RoundsForGame(ctx, id)
	if err != nil {
		return nil, err
	}
	return &GameSummary{Game: *game, Rounds: rounds}, nil
}

// GetLeaderboard returns the top teams across completed games. A limit
// outside 1..100 falls back to the default of 10.
func (a *App) GetLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > maxLeaderboardLimit {
		limit = defaultLeaderboardLimit
	}
	return a.repo.Leaderboard(ctx, limit)
}

func (a *App) validateGame(game models.Game) error {
	if game.ID == uuid.Nil {
		return fmt.Errorf("game id is required")
	}
	if game.Name == "" {
		return fmt.Errorf("game name is required")
	}
	for _, team := range game.Teams {
		if team.ID == uuid.Nil {
			return fmt.Errorf("team id is required")
		}
	}
	return nil
}

func (a *App) validateRoundRecord(rec models.RoundRecord) error {
	if rec.GameID == uuid.Nil {
		return fmt.Errorf("game_id is required")
	}
	if rec.TeamID == uuid.Nil {
		return fmt.Errorf("team_id is required")
	}
	if rec.RoundNumber < 1 {
		return fmt.Errorf("round_number must be positive, got %d", rec.RoundNumber)
	}
	if !rec.Outcome.Forfeited && (rec.Outcome.Confidence < 1 || rec.Outcome.Confidence > 3) {
		return fmt.Errorf("confidence must be between 1 and 3, got %d", rec.Outcome.Confidence)
	}
	return nil
}
