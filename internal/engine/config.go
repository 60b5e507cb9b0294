package engine

import (
	"fmt"
	"time"

	"github.com/mkor14/veracity/internal/models"
)

// DifficultyConfig sets the discussion window and payoff multiplier of one
// difficulty tier.
type DifficultyConfig struct {
	DiscussTime time.Duration
	Multiplier  float64
}

// Config holds the tunables of the round engine.
type Config struct {
	Difficulty     map[models.Difficulty]DifficultyConfig
	FocusThreshold int // violations before forced forfeiture
	ForfeitPenalty int // points of a forfeited round, <= 0
}

// DefaultConfig returns the standard classroom tuning: harder claims pay
// more and allow longer discussion, one tab switch forfeits the round.
func DefaultConfig() Config {
	return Config{
		Difficulty: map[models.Difficulty]DifficultyConfig{
			models.DifficultyEasy:   {DiscussTime: 90 * time.Second, Multiplier: 1.0},
			models.DifficultyMedium: {DiscussTime: 120 * time.Second, Multiplier: 1.0},
			models.DifficultyHard:   {DiscussTime: 150 * time.Second, Multiplier: 1.25},
			models.DifficultyExpert: {DiscussTime: 180 * time.Second, Multiplier: 1.5},
		},
		FocusThreshold: 1,
		ForfeitPenalty: -2,
	}
}

// Validate checks the config for values the engine cannot run with.
func (c Config) Validate() error {
	if len(c.Difficulty) == 0 {
		return fmt.Errorf("no difficulty tiers configured")
	}
	for tier, dc := range c.Difficulty {
		if !tier.Valid() {
			return fmt.Errorf("unknown difficulty tier %q", tier)
		}
		if dc.DiscussTime <= 0 {
			return fmt.Errorf("difficulty %s: discuss time must be positive", tier)
		}
		if dc.Multiplier <= 0 {
			return fmt.Errorf("difficulty %s: multiplier must be positive", tier)
		}
	}
	if c.FocusThreshold < 1 {
		return fmt.Errorf("focus threshold must be at least 1")
	}
	if c.ForfeitPenalty > 0 {
		return fmt.Errorf("forfeit penalty must not be positive")
	}
	return nil
}
