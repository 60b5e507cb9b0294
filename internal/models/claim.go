package models

import (
	"github.com/google/uuid"
)

// Answer defines the ground-truth judgment of a claim.
type Answer string

const (
	AnswerTrue  Answer = "TRUE"
	AnswerFalse Answer = "FALSE"
	AnswerMixed Answer = "MIXED"
)

// Valid reports whether the answer is one of the known values.
func (a Answer) Valid() bool {
	switch a {
	case AnswerTrue, AnswerFalse, AnswerMixed:
		return true
	}
	return false
}

// Verdict defines a team's judgment of a claim during a round.
type Verdict string

const (
	VerdictUnset Verdict = "UNSET"
	VerdictTrue  Verdict = "TRUE"
	VerdictFalse Verdict = "FALSE"
	VerdictMixed Verdict = "MIXED"
)

// Valid reports whether the verdict is settable by a team.
// VerdictUnset is the zero state, not a settable value.
func (v Verdict) Valid() bool {
	switch v {
	case VerdictTrue, VerdictFalse, VerdictMixed:
		return true
	}
	return false
}

// Matches reports whether the verdict agrees with the ground-truth answer.
func (v Verdict) Matches(a Answer) bool {
	return string(v) == string(a)
}

// Difficulty defines the difficulty tier of a claim. Values double as
// config keys, so they stay lowercase.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyExpert Difficulty = "expert"
)

// Valid reports whether the difficulty is one of the known tiers.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert:
		return true
	}
	return false
}

// Claim is a statement presented to a team for judgment. Immutable for the
// duration of a round.
type Claim struct {
	ID            uuid.UUID  `json:"id"`
	Statement     string     `json:"statement"`
	CorrectAnswer Answer     `json:"correct_answer"`
	Difficulty    Difficulty `json:"difficulty"`
	Category      string     `json:"category,omitempty"`
	Explanation   string     `json:"explanation,omitempty"`
}
