// Package results persists finished rounds and final standings to
// PostgreSQL and serves cross-game leaderboards from them.
package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkor14/veracity/internal/models"
	"github.com/mkor14/veracity/internal/sqlutil"
)

// ErrNotFound indicates the requested game has no row in the store.
var ErrNotFound = errors.New("game not recorded")

// LeaderboardEntry is one row of the cross-game leaderboard.
type LeaderboardEntry struct {
	TeamID       uuid.UUID `json:"team_id"`
	TeamName     string    `json:"team_name"`
	GameID       uuid.UUID `json:"game_id"`
	GameName     string    `json:"game_name"`
	Score        int       `json:"score"`
	RoundsPlayed int       `json:"rounds_played"`
}

// Repository implements the results store on top of PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new results repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertGame inserts or refreshes the game row and its teams. Called for
// game.created and game.started, so it never overwrites running score
// tallies; those belong to RecordRound and CompleteGame.
func (r *Repository) UpsertGame(ctx context.Context, game models.Game) error {
	return sqlutil.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `
INSERT INTO games (id, name, join_code, status, rounds_per_team, total_rounds, created_at, started_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    status       = EXCLUDED.status,
    total_rounds = EXCLUDED.total_rounds,
    started_at   = COALESCE(EXCLUDED.started_at, games.started_at),
    completed_at = COALESCE(EXCLUDED.completed_at, games.completed_at)
`
		_, err := tx.Exec(ctx, q,
			game.ID,
			game.Name,
			game.JoinCode,
			string(game.Status),
			game.Settings.RoundsPerTeam,
			game.TotalRounds,
			game.CreatedAt,
			game.StartedAt,
			game.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert game: %w", err)
		}

		const tq = `
INSERT INTO game_teams (game_id, team_id, name, score, rounds_played)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (game_id, team_id) DO UPDATE SET name = EXCLUDED.name
`
		for _, team := range game.Teams {
			if _, err := tx.Exec(ctx, tq, game.ID, team.ID, team.Name, team.Score, team.RoundsPlayed); err != nil {
				return fmt.Errorf("failed to upsert team %s: %w", team.ID, err)
			}
		}
		return nil
	})
}

// RecordRound stores one finished round and folds its points into the
// team tally. The (game_id, round_number) primary key makes redelivered
// events no-ops; the bool reports whether this call did the insert.
func (r *Repository) RecordRound(ctx context.Context, rec models.RoundRecord) (bool, error) {
	inserted := false
	err := sqlutil.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `
INSERT INTO round_results (
    game_id, round_number, team_id, team_name, claim_id, verdict, confidence,
    correct, points, bonus_tier, bonus_points, forfeited, forfeit_reason,
    elapsed_seconds, completed_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (game_id, round_number) DO NOTHING
`
		var bonusTier float64
		var bonusPoints int
		if rec.Outcome.SpeedBonus != nil {
			bonusTier = rec.Outcome.SpeedBonus.Tier
			bonusPoints = rec.Outcome.SpeedBonus.Bonus
		}
		ct, err := tx.Exec(ctx, q,
			rec.GameID,
			rec.RoundNumber,
			rec.TeamID,
			rec.TeamName,
			rec.Outcome.ClaimID,
			string(rec.Outcome.Verdict),
			rec.Outcome.Confidence,
			rec.Outcome.Correct,
			rec.Outcome.Points,
			bonusTier,
			bonusPoints,
			rec.Outcome.Forfeited,
			string(rec.Outcome.ForfeitReason),
			rec.Outcome.ElapsedSeconds,
			rec.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert round result: %w", err)
		}
		if ct.RowsAffected() == 0 {
			// Round already recorded by an earlier delivery.
			return nil
		}
		inserted = true

		const tally = `
UPDATE game_teams
SET score = score + $3, rounds_played = rounds_played + 1
WHERE game_id = $1 AND team_id = $2
`
		if _, err := tx.Exec(ctx, tally, rec.GameID, rec.TeamID, rec.Outcome.Points); err != nil {
			return fmt.Errorf("failed to update team tally: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// CompleteGame marks the game finished and writes the final standings
// from the payload. The payload scores are authoritative, so this also
// heals any tally drift from rounds the worker never saw.
func (r *Repository) CompleteGame(ctx context.Context, game models.Game) error {
	return sqlutil.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `
UPDATE games SET status = $2, completed_at = $3 WHERE id = $1
`
		ct, err := tx.Exec(ctx, q, game.ID, string(models.GameStatusCompleted), game.CompletedAt)
		if err != nil {
			return fmt.Errorf("failed to complete game: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return fmt.Errorf("failed to complete game %s: %w", game.ID, ErrNotFound)
		}

		const tq = `
UPDATE game_teams SET score = $3, rounds_played = $4 WHERE game_id = $1 AND team_id = $2
`
		for _, team := range game.Teams {
			if _, err := tx.Exec(ctx, tq, game.ID, team.ID, team.Score, team.RoundsPlayed); err != nil {
				return fmt.Errorf("failed to finalize team %s: %w", team.ID, err)
			}
		}
		return nil
	})
}

// GetGame loads one stored game with its teams.
func (r *Repository) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	const q = `
SELECT id, name, join_code, status, rounds_per_team, total_rounds, created_at, started_at, completed_at
FROM games
WHERE id = $1
`
	var game models.Game
	var status string
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&game.ID,
		&game.Name,
		&game.JoinCode,
		&status,
		&game.Settings.RoundsPerTeam,
		&game.TotalRounds,
		&game.CreatedAt,
		&game.StartedAt,
		&game.CompletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	game.Status = models.GameStatus(status)

	const tq = `
SELECT team_id, name, score, rounds_played
FROM game_teams
WHERE game_id = $1
ORDER BY name
`
	rows, err := r.pool.Query(ctx, tq, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Score, &team.RoundsPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		game.Teams = append(game.Teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read teams: %w", err)
	}
	return &game, nil
}

// RoundsForGame returns every stored round of a game in play order.
func (r *Repository) RoundsForGame(ctx context.Context, gameID uuid.UUID) ([]models.RoundRecord, error) {
	const q = `
SELECT round_number, team_id, team_name, claim_id, verdict, confidence, correct,
       points, bonus_tier, bonus_points, forfeited, forfeit_reason,
       elapsed_seconds, completed_at
FROM round_results
WHERE game_id = $1
ORDER BY round_number
`
	rows, err := r.pool.Query(ctx, q, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var records []models.RoundRecord
	for rows.Next() {
		rec, err := scanRoundRecord(rows, gameID)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rounds: %w", err)
	}
	return records, nil
}

// Leaderboard returns the highest-scoring teams across completed games.
func (r *Repository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	const q = `
SELECT t.team_id, t.name, t.game_id, g.name, t.score, t.rounds_played
FROM game_teams t
JOIN games g ON g.id = t.game_id
WHERE g.status = $1
ORDER BY t.score DESC, t.name
LIMIT $2
`
	rows, err := r.pool.Query(ctx, q, string(models.GameStatusCompleted), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.TeamID, &e.TeamName, &e.GameID, &e.GameName, &e.Score, &e.RoundsPlayed); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return entries, nil
}

func scanRoundRecord(rows pgx.Rows, gameID uuid.UUID) (models.RoundRecord, error) {
	var (
		rec           models.RoundRecord
		verdict       string
		forfeitReason string
		bonusTier     float64
		bonusPoints   int
		completedAt   time.Time
	)
	err := rows.Scan(
		&rec.RoundNumber,
		&rec.TeamID,
		&rec.TeamName,
		&rec.Outcome.ClaimID,
		&verdict,
		&rec.Outcome.Confidence,
		&rec.Outcome.Correct,
		&rec.Outcome.Points,
		&bonusTier,
		&bonusPoints,
		&rec.Outcome.Forfeited,
		&forfeitReason,
		&rec.Outcome.ElapsedSeconds,
		&completedAt,
	)
	if err != nil {
		return models.RoundRecord{}, fmt.Errorf("failed to scan round result: %w", err)
	}
	rec.GameID = gameID
	rec.Outcome.Verdict = models.Verdict(verdict)
	rec.Outcome.ForfeitReason = models.ForfeitReason(forfeitReason)
	rec.CompletedAt = completedAt
	if bonusTier > 0 {
		rec.Outcome.SpeedBonus = &models.SpeedBonus{Tier: bonusTier, Bonus: bonusPoints}
	}
	return rec, nil
}
