package models

import (
	"time"

	"github.com/google/uuid"
)

// ForfeitReason defines why a round ended without normal scoring.
type ForfeitReason string

const (
	ForfeitReasonTimeout   ForfeitReason = "time-out"
	ForfeitReasonTabSwitch ForfeitReason = "tab-switch"
)

// SpeedBonus describes the bonus awarded for a fast correct verdict.
type SpeedBonus struct {
	Tier  float64 `json:"tier"`
	Bonus int     `json:"bonus"`
}

// RoundOutcome is the terminal record of one round. Produced exactly once
// per round.
type RoundOutcome struct {
	ClaimID        uuid.UUID     `json:"claim_id"`
	Verdict        Verdict       `json:"verdict"`
	Confidence     int           `json:"confidence"`
	Correct        bool          `json:"correct"`
	Points         int           `json:"points"`
	SpeedBonus     *SpeedBonus   `json:"speed_bonus,omitempty"`
	Forfeited      bool          `json:"forfeited"`
	ForfeitReason  ForfeitReason `json:"forfeit_reason,omitempty"`
	ElapsedSeconds int           `json:"time_elapsed_seconds"`
}

// RoundRecord ties a round outcome to the game and team it belongs to.
type RoundRecord struct {
	GameID      uuid.UUID    `json:"game_id"`
	RoundNumber int          `json:"round_number"`
	TeamID      uuid.UUID    `json:"team_id"`
	TeamName    string       `json:"team_name"`
	Outcome     RoundOutcome `json:"outcome"`
	CompletedAt time.Time    `json:"completed_at"`
}
