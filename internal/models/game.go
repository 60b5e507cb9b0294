package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus defines the lifecycle status of a game.
type GameStatus string

const (
	GameStatusLobby      GameStatus = "LOBBY"
	GameStatusInProgress GameStatus = "IN_PROGRESS"
	GameStatusCompleted  GameStatus = "COMPLETED"
)

// GameSettings holds the configuration chosen at game creation.
type GameSettings struct {
	RoundsPerTeam int          `json:"rounds_per_team"`
	Difficulties  []Difficulty `json:"difficulties,omitempty"` // empty = all tiers
}

// Team is one group of players judging claims together.
type Team struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Score        int       `json:"score"`
	RoundsPlayed int       `json:"rounds_played"`
}

// Game represents one classroom session.
type Game struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	JoinCode    string       `json:"join_code"`
	Status      GameStatus   `json:"status"`
	Settings    GameSettings `json:"settings"`
	Teams       []Team       `json:"teams"`
	RoundNumber int          `json:"round_number"` // 1-based once the game starts
	TotalRounds int          `json:"total_rounds"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
