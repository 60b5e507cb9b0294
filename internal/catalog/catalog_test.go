package catalog

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mkor14/veracity/internal/models"
)

const validPack = `
name: Test Pack
claims:
  - statement: "Honey never spoils."
    answer: "TRUE"
    difficulty: easy
    category: food
    explanation: "Sealed honey is essentially immortal."
  - statement: "Napoleon was unusually short."
    answer: mixed
    difficulty: Medium
  - id: "4f2a9cb2-08ad-4c1c-9a41-0f2b4f15f2aa"
    statement: "Goldfish have a three-second memory."
    answer: "false"
    difficulty: hard
`

func TestParsePack(t *testing.T) {
	pack, err := ParsePack([]byte(validPack))
	if err != nil {
		t.Fatalf("ParsePack: %v", err)
	}
	if pack.Name != "Test Pack" {
		t.Errorf("Name = %q, want %q", pack.Name, "Test Pack")
	}
	if len(pack.Claims) != 3 {
		t.Fatalf("len(Claims) = %d, want 3", len(pack.Claims))
	}

	first := pack.Claims[0]
	if first.CorrectAnswer != models.AnswerTrue || first.Difficulty != models.DifficultyEasy {
		t.Errorf("first claim = %+v, want TRUE/easy", first)
	}
	if first.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("first claim id was not generated")
	}

	// Case-insensitive answer and difficulty normalization.
	second := pack.Claims[1]
	if second.CorrectAnswer != models.AnswerMixed || second.Difficulty != models.DifficultyMedium {
		t.Errorf("second claim = %+v, want MIXED/medium", second)
	}

	third := pack.Claims[2]
	if third.ID.String() != "4f2a9cb2-08ad-4c1c-9a41-0f2b4f15f2aa" {
		t.Errorf("third claim id = %s, want the declared one", third.ID)
	}
}

func TestParsePackRejectsBadClaims(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"unknown answer",
			"name: P\nclaims:\n  - statement: s\n    answer: MAYBE\n    difficulty: easy\n",
			"unknown answer",
		},
		{
			"unknown difficulty",
			"name: P\nclaims:\n  - statement: s\n    answer: TRUE\n    difficulty: nightmare\n",
			"unknown difficulty",
		},
		{
			"empty statement",
			"name: P\nclaims:\n  - statement: \"  \"\n    answer: TRUE\n    difficulty: easy\n",
			"statement is empty",
		},
		{
			"bad id",
			"name: P\nclaims:\n  - id: not-a-uuid\n    statement: s\n    answer: TRUE\n    difficulty: easy\n",
			"invalid claim id",
		},
		{
			"missing name",
			"claims:\n  - statement: s\n    answer: TRUE\n    difficulty: easy\n",
			"no name",
		},
		{
			"no claims",
			"name: P\nclaims: []\n",
			"no claims",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePack([]byte(tt.yaml))
			if err == nil {
				t.Fatal("ParsePack succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "history.yaml"), validPack)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a pack")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if len(c.Packs()) != 1 {
		t.Errorf("len(Packs()) = %d, want 1", len(c.Packs()))
	}
}

func TestLoadFailsOnEmptyDir(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load of an empty dir succeeded, want error")
	}
}

func TestClaimsFilter(t *testing.T) {
	pack, err := ParsePack([]byte(validPack))
	if err != nil {
		t.Fatalf("ParsePack: %v", err)
	}
	c := &Catalog{packs: []Pack{pack}, claims: pack.Claims}

	easy := c.Claims(models.DifficultyEasy)
	if len(easy) != 1 || easy[0].Difficulty != models.DifficultyEasy {
		t.Errorf("Claims(easy) = %+v, want the one easy claim", easy)
	}
	all := c.Claims()
	if len(all) != 3 {
		t.Errorf("Claims() = %d claims, want 3", len(all))
	}
}

func TestPick(t *testing.T) {
	pack, err := ParsePack([]byte(validPack))
	if err != nil {
		t.Fatalf("ParsePack: %v", err)
	}
	c := &Catalog{claims: pack.Claims}

	picked, err := c.Pick(2, nil, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if len(picked) != 2 {
		t.Fatalf("len(picked) = %d, want 2", len(picked))
	}
	if picked[0].ID == picked[1].ID {
		t.Error("Pick returned the same claim twice")
	}

	// Same seed, same selection.
	again, err := c.Pick(2, nil, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	for i := range picked {
		if picked[i].ID != again[i].ID {
			t.Errorf("picked[%d] differs between identically seeded picks", i)
		}
	}

	if _, err := c.Pick(10, nil, rand.New(rand.NewSource(1))); err == nil {
		t.Error("Pick(10) from a 3-claim catalog succeeded, want error")
	}
	if _, err := c.Pick(2, []models.Difficulty{models.DifficultyEasy}, rand.New(rand.NewSource(1))); err == nil {
		t.Error("Pick(2 easy) from a catalog with 1 easy claim succeeded, want error")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
