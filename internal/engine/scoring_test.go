package engine

import (
	"testing"
	"time"

	"github.com/mkor14/veracity/internal/models"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		in        ScoreInput
		want      int
		wantBonus *models.SpeedBonus
	}{
		{
			"confident fast correct on medium",
			ScoreInput{Correct: true, Confidence: 3, Multiplier: 1.0, Elapsed: 5 * time.Second, Total: 120 * time.Second},
			10, &models.SpeedBonus{Tier: 2.0, Bonus: 5},
		},
		{
			"low stake incorrect on easy",
			ScoreInput{Correct: false, Confidence: 1, Multiplier: 1.0, Elapsed: 60 * time.Second, Total: 90 * time.Second},
			-1, nil,
		},
		{
			"no bonus past half time",
			ScoreInput{Correct: true, Confidence: 2, Multiplier: 1.0, Elapsed: 61 * time.Second, Total: 120 * time.Second},
			3, nil,
		},
		{
			"ten percent band edge",
			ScoreInput{Correct: true, Confidence: 2, Multiplier: 1.0, Elapsed: 12 * time.Second, Total: 120 * time.Second},
			6, &models.SpeedBonus{Tier: 2.0, Bonus: 3},
		},
		{
			"twenty percent band rounds half up",
			ScoreInput{Correct: true, Confidence: 2, Multiplier: 1.0, Elapsed: 24 * time.Second, Total: 120 * time.Second},
			5, &models.SpeedBonus{Tier: 1.5, Bonus: 2},
		},
		{
			"thirty-five percent band with hard multiplier",
			ScoreInput{Correct: true, Confidence: 3, Multiplier: 1.25, Elapsed: 42 * time.Second, Total: 120 * time.Second},
			8, &models.SpeedBonus{Tier: 1.3, Bonus: 2},
		},
		{
			"fifty percent band can round bonus to zero",
			ScoreInput{Correct: true, Confidence: 1, Multiplier: 1.0, Elapsed: 60 * time.Second, Total: 120 * time.Second},
			1, &models.SpeedBonus{Tier: 1.1, Bonus: 0},
		},
		{
			"expert stakes cut deep when wrong",
			ScoreInput{Correct: false, Confidence: 3, Multiplier: 1.5, Elapsed: 10 * time.Second, Total: 180 * time.Second},
			-9, nil,
		},
		{
			"fast but wrong earns no bonus",
			ScoreInput{Correct: false, Confidence: 3, Multiplier: 1.0, Elapsed: 5 * time.Second, Total: 120 * time.Second},
			-6, nil,
		},
		{
			"integrity penalty is added",
			ScoreInput{Correct: true, Confidence: 2, Multiplier: 1.0, Elapsed: 100 * time.Second, Total: 120 * time.Second, IntegrityPenalty: -2},
			1, nil,
		},
		{
			"hard multiplier rounds nominal",
			ScoreInput{Correct: true, Confidence: 2, Multiplier: 1.25, Elapsed: 80 * time.Second, Total: 120 * time.Second},
			4, nil,
		},
		{
			"negative nominal rounds away from zero",
			ScoreInput{Correct: false, Confidence: 2, Multiplier: 1.25, Elapsed: 80 * time.Second, Total: 120 * time.Second},
			-4, nil,
		},
		{
			"elapsed beyond total is clamped",
			ScoreInput{Correct: true, Confidence: 1, Multiplier: 1.0, Elapsed: 500 * time.Second, Total: 120 * time.Second},
			1, nil,
		},
		{
			"negative elapsed is clamped to fastest band",
			ScoreInput{Correct: true, Confidence: 1, Multiplier: 1.0, Elapsed: -3 * time.Second, Total: 120 * time.Second},
			2, &models.SpeedBonus{Tier: 2.0, Bonus: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.in)
			if got.Points != tt.want {
				t.Errorf("Score(%+v).Points = %d, want %d", tt.in, got.Points, tt.want)
			}
			if (got.SpeedBonus == nil) != (tt.wantBonus == nil) {
				t.Fatalf("Score(%+v).SpeedBonus = %+v, want %+v", tt.in, got.SpeedBonus, tt.wantBonus)
			}
			if got.SpeedBonus != nil && *got.SpeedBonus != *tt.wantBonus {
				t.Errorf("Score(%+v).SpeedBonus = %+v, want %+v", tt.in, *got.SpeedBonus, *tt.wantBonus)
			}
		})
	}
}

func TestScoreDeterminism(t *testing.T) {
	in := ScoreInput{Correct: true, Confidence: 3, Multiplier: 1.25, Elapsed: 17 * time.Second, Total: 150 * time.Second, IntegrityPenalty: -1}
	first := Score(in)
	for i := 0; i < 50; i++ {
		got := Score(in)
		if got.Points != first.Points {
			t.Fatalf("call %d: Points = %d, want %d", i, got.Points, first.Points)
		}
		if (got.SpeedBonus == nil) != (first.SpeedBonus == nil) ||
			(got.SpeedBonus != nil && *got.SpeedBonus != *first.SpeedBonus) {
			t.Fatalf("call %d: SpeedBonus = %+v, want %+v", i, got.SpeedBonus, first.SpeedBonus)
		}
	}
}

func TestSpeedBonusMonotonic(t *testing.T) {
	total := 100 * time.Second
	prev := int(^uint(0) >> 1) // max int
	for sec := 0; sec <= 100; sec++ {
		res := Score(ScoreInput{Correct: true, Confidence: 3, Multiplier: 1.0, Elapsed: time.Duration(sec) * time.Second, Total: total})
		bonus := 0
		if res.SpeedBonus != nil {
			bonus = res.SpeedBonus.Bonus
		}
		if bonus > prev {
			t.Fatalf("bonus increased from %d to %d at %ds", prev, bonus, sec)
		}
		if sec > 50 && bonus != 0 {
			t.Fatalf("bonus %d past the 50%% band at %ds", bonus, sec)
		}
		prev = bonus
	}
}

func TestConfidenceRiskSymmetry(t *testing.T) {
	// Past every bonus band so only the base payoff matters.
	elapsed, total := 80*time.Second, 100*time.Second

	prevWin, prevLoss := 0, 0
	for level := 1; level <= 3; level++ {
		win := Score(ScoreInput{Correct: true, Confidence: level, Multiplier: 1.0, Elapsed: elapsed, Total: total}).Points
		loss := Score(ScoreInput{Correct: false, Confidence: level, Multiplier: 1.0, Elapsed: elapsed, Total: total}).Points
		if win <= prevWin {
			t.Errorf("level %d: winning payoff %d not above level %d's %d", level, win, level-1, prevWin)
		}
		if -loss <= prevLoss {
			t.Errorf("level %d: losing magnitude %d not above level %d's %d", level, -loss, level-1, prevLoss)
		}
		prevWin, prevLoss = win, -loss
	}
}

func TestForfeit(t *testing.T) {
	res := Forfeit(-2)
	if res.Points != -2 {
		t.Errorf("Forfeit(-2).Points = %d, want -2", res.Points)
	}
	if res.SpeedBonus != nil {
		t.Errorf("Forfeit(-2).SpeedBonus = %+v, want nil", res.SpeedBonus)
	}
}

func TestScorePanicsOnUnknownConfidence(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Score with confidence 4 did not panic")
		}
	}()
	Score(ScoreInput{Correct: true, Confidence: 4, Multiplier: 1.0, Elapsed: time.Second, Total: time.Minute})
}
