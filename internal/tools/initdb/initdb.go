package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"

	"github.com/mkor14/veracity/internal/dbconfig"
)

// Schema for the results store. Statements are idempotent so the tool can
// run against an existing database.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS games (
        id              UUID PRIMARY KEY,
        name            TEXT NOT NULL,
        join_code       TEXT NOT NULL,
        status          TEXT NOT NULL,
        rounds_per_team INT NOT NULL DEFAULT 0,
        total_rounds    INT NOT NULL DEFAULT 0,
        created_at      TIMESTAMPTZ NOT NULL,
        started_at      TIMESTAMPTZ,
        completed_at    TIMESTAMPTZ
    )`,
	`CREATE TABLE IF NOT EXISTS game_teams (
        game_id       UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
        team_id       UUID NOT NULL,
        name          TEXT NOT NULL,
        score         INT NOT NULL DEFAULT 0,
        rounds_played INT NOT NULL DEFAULT 0,
        PRIMARY KEY (game_id, team_id)
    )`,
	`CREATE TABLE IF NOT EXISTS round_results (
        game_id         UUID NOT NULL REFERENCES games(id) ON DELETE CASCADE,
        round_number    INT NOT NULL,
        team_id         UUID NOT NULL,
        team_name       TEXT NOT NULL,
        claim_id        UUID NOT NULL,
        verdict         TEXT NOT NULL,
        confidence      INT NOT NULL,
        correct         BOOLEAN NOT NULL,
        points          INT NOT NULL,
        bonus_tier      DOUBLE PRECISION NOT NULL DEFAULT 0,
        bonus_points    INT NOT NULL DEFAULT 0,
        forfeited       BOOLEAN NOT NULL,
        forfeit_reason  TEXT NOT NULL DEFAULT '',
        elapsed_seconds INT NOT NULL,
        completed_at    TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (game_id, round_number)
    )`,
	`CREATE INDEX IF NOT EXISTS idx_round_results_team
        ON round_results (game_id, team_id)`,
	`CREATE INDEX IF NOT EXISTS idx_games_status
        ON games (status)`,
}

func main() {
	cfg := dbconfig.NewConfigFromEnv()

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "ping database: %v\n", err)
		os.Exit(1)
	}

	for i, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			fmt.Fprintf(os.Stderr, "statement %d failed: %v\n", i+1, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Schema ready: %d statements applied to %s\n", len(statements), cfg.Database)
}
