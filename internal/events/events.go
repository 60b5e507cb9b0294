// Package events defines the game event envelope and payloads pushed to the
// gateway and the results worker.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkor14/veracity/internal/models"
)

// EventType identifies the kind of game event.
type EventType string

const (
	TypeGameCreated      EventType = "game.created"
	TypeGameStarted      EventType = "game.started"
	TypeRoundStarted     EventType = "round.started"
	TypeTimerTick        EventType = "timer.tick"
	TypeIntegrityWarning EventType = "integrity.warning"
	TypeRoundCompleted   EventType = "round.completed"
	TypeGameCompleted    EventType = "game.completed"
)

// GameEvent is the envelope every event travels in.
type GameEvent struct {
	ID        uuid.UUID       `json:"id"`
	GameID    uuid.UUID       `json:"game_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// GameCreatedData announces a new lobby.
type GameCreatedData struct {
	Game models.Game `json:"game"`
}

// GameStartedData announces that the first round is about to begin.
type GameStartedData struct {
	Game models.Game `json:"game"`
}

// RoundStartedData presents a claim to the active team. The correct answer
// and explanation stay server-side until the round completes; everything in
// this payload is shown to players.
type RoundStartedData struct {
	RoundNumber    int               `json:"round_number"`
	TeamID         uuid.UUID         `json:"team_id"`
	TeamName       string            `json:"team_name"`
	ClaimID        uuid.UUID         `json:"claim_id"`
	Statement      string            `json:"statement"`
	Difficulty     models.Difficulty `json:"difficulty"`
	Category       string            `json:"category,omitempty"`
	DiscussSeconds int               `json:"discuss_seconds"`
}

// TimerTickData carries the remaining time for display countdowns.
type TimerTickData struct {
	RoundNumber      int `json:"round_number"`
	RemainingSeconds int `json:"remaining_seconds"`
}

// IntegrityWarningData reports a focus-loss violation during a round.
type IntegrityWarningData struct {
	RoundNumber int       `json:"round_number"`
	TeamID      uuid.UUID `json:"team_id"`
	Violations  int       `json:"violations"`
}

// RoundCompletedData reveals the outcome of a round, including the answer
// and explanation held back at round start.
type RoundCompletedData struct {
	Record        models.RoundRecord `json:"record"`
	CorrectAnswer models.Answer      `json:"correct_answer"`
	Explanation   string             `json:"explanation,omitempty"`
}

// GameCompletedData carries the final standings.
type GameCompletedData struct {
	Game models.Game `json:"game"`
}

// NewGameEvent wraps a payload in the event envelope.
func NewGameEvent(gameID uuid.UUID, eventType EventType, payload any) (GameEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return GameEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return GameEvent{
		ID:        uuid.New(),
		GameID:    gameID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}
