package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/mkor14/veracity/internal/models"
)

// Base payoffs per confidence level: index 0 is the correct payoff, index 1
// the incorrect one. Level 3 risks more than it pays.
var basePayoff = map[int][2]int{
	1: {1, -1},
	2: {3, -3},
	3: {5, -6},
}

// speedBand maps an upper bound on the elapsed fraction of the allowed time
// to a bonus tier.
type speedBand struct {
	limit float64
	tier  float64
}

// Bands are checked in order; a fraction past the last band earns no bonus.
var speedBands = []speedBand{
	{limit: 0.10, tier: 2.0},
	{limit: 0.20, tier: 1.5},
	{limit: 0.35, tier: 1.3},
	{limit: 0.50, tier: 1.1},
}

// ScoreInput carries the inputs of one scored round. Confidence and
// multiplier are validated upstream at the setter and config boundaries.
type ScoreInput struct {
	Correct          bool
	Confidence       int
	Multiplier       float64
	Elapsed          time.Duration
	Total            time.Duration
	IntegrityPenalty int // <= 0
}

// ScoreResult is the signed point delta of a round plus an optional speed
// bonus descriptor for host feedback.
type ScoreResult struct {
	Points     int
	SpeedBonus *models.SpeedBonus
}

// Score computes the point delta for a normally completed round:
// base payoff by confidence and correctness, scaled by the difficulty
// multiplier and rounded to the nearest integer, plus a speed bonus for
// fast correct verdicts, plus the integrity penalty. Pure: identical inputs
// always yield identical results.
func Score(in ScoreInput) ScoreResult {
	payoffs, ok := basePayoff[in.Confidence]
	if !ok {
		panic(fmt.Sprintf("engine: confidence out of range: %d", in.Confidence))
	}
	base := payoffs[0]
	if !in.Correct {
		base = payoffs[1]
	}

	nominal := int(math.Round(float64(base) * in.Multiplier))
	points := nominal

	var bonus *models.SpeedBonus
	if in.Correct {
		if tier, ok := speedTier(in.Elapsed, in.Total); ok {
			b := int(math.Round(float64(nominal) * (tier - 1)))
			points += b
			bonus = &models.SpeedBonus{Tier: tier, Bonus: b}
		}
	}

	points += in.IntegrityPenalty
	return ScoreResult{Points: points, SpeedBonus: bonus}
}

// Forfeit returns the points of a forfeited round: the flat configured
// penalty, no payoff and no bonus.
func Forfeit(penalty int) ScoreResult {
	return ScoreResult{Points: penalty}
}

// speedTier returns the bonus tier for the elapsed fraction of the allowed
// time, or false past the last band. Elapsed time is clamped to [0, total].
func speedTier(elapsed, total time.Duration) (float64, bool) {
	if total <= 0 {
		return 0, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > total {
		elapsed = total
	}
	fraction := elapsed.Seconds() / total.Seconds()
	for _, band := range speedBands {
		if fraction <= band.limit {
			return band.tier, true
		}
	}
	return 0, false
}
