// Package catalog loads claim packs: YAML files holding the statements a
// game draws its rounds from.
package catalog

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mkor14/veracity/internal/models"
)

// claimSpec is the YAML shape of one claim inside a pack file.
type claimSpec struct {
	ID          string `yaml:"id"`
	Statement   string `yaml:"statement"`
	Answer      string `yaml:"answer"`
	Difficulty  string `yaml:"difficulty"`
	Category    string `yaml:"category"`
	Explanation string `yaml:"explanation"`
}

// packFile is the YAML shape of a pack file.
type packFile struct {
	Name   string      `yaml:"name"`
	Claims []claimSpec `yaml:"claims"`
}

// Pack is a named set of validated claims.
type Pack struct {
	Name   string
	Claims []models.Claim
}

// Catalog is the full set of claims available to new games.
type Catalog struct {
	packs  []Pack
	claims []models.Claim
}

// Load reads every .yaml/.yml pack in dir. It fails when the directory
// holds no packs or any pack fails validation.
func Load(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog dir: %w", err)
	}

	c := &Catalog{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read pack %s: %w", entry.Name(), err)
		}
		pack, err := ParsePack(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pack %s: %w", entry.Name(), err)
		}

		c.packs = append(c.packs, pack)
		c.claims = append(c.claims, pack.Claims...)
		log.Info().
			Str("pack", pack.Name).
			Int("claims", len(pack.Claims)).
			Msg("loaded claim pack")
	}

	if len(c.claims) == 0 {
		return nil, fmt.Errorf("no claim packs found in %s", dir)
	}
	return c, nil
}

// ParsePack parses and validates one pack file. Claims without an id get a
// generated one; answer and difficulty are normalized before validation.
func ParsePack(data []byte) (Pack, error) {
	var pf packFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return Pack{}, fmt.Errorf("failed to unmarshal pack: %w", err)
	}
	if pf.Name == "" {
		return Pack{}, fmt.Errorf("pack has no name")
	}
	if len(pf.Claims) == 0 {
		return Pack{}, fmt.Errorf("pack %s has no claims", pf.Name)
	}

	pack := Pack{Name: pf.Name, Claims: make([]models.Claim, 0, len(pf.Claims))}
	for i, spec := range pf.Claims {
		claim, err := spec.toClaim()
		if err != nil {
			return Pack{}, fmt.Errorf("pack %s: claim %d: %w", pf.Name, i, err)
		}
		pack.Claims = append(pack.Claims, claim)
	}
	return pack, nil
}

func (s claimSpec) toClaim() (models.Claim, error) {
	if strings.TrimSpace(s.Statement) == "" {
		return models.Claim{}, fmt.Errorf("statement is empty")
	}

	answer := models.Answer(strings.ToUpper(strings.TrimSpace(s.Answer)))
	if !answer.Valid() {
		return models.Claim{}, fmt.Errorf("unknown answer %q", s.Answer)
	}
	difficulty := models.Difficulty(strings.ToLower(strings.TrimSpace(s.Difficulty)))
	if !difficulty.Valid() {
		return models.Claim{}, fmt.Errorf("unknown difficulty %q", s.Difficulty)
	}

	id := uuid.New()
	if s.ID != "" {
		parsed, err := uuid.Parse(s.ID)
		if err != nil {
			return models.Claim{}, fmt.Errorf("invalid claim id %q: %w", s.ID, err)
		}
		id = parsed
	}

	return models.Claim{
		ID:            id,
		Statement:     strings.TrimSpace(s.Statement),
		CorrectAnswer: answer,
		Difficulty:    difficulty,
		Category:      strings.TrimSpace(s.Category),
		Explanation:   strings.TrimSpace(s.Explanation),
	}, nil
}

// Packs returns the loaded packs.
func (c *Catalog) Packs() []Pack {
	return c.packs
}

// Len returns the total claim count.
func (c *Catalog) Len() int {
	return len(c.claims)
}

// Claims returns the claims matching the difficulty filter. An empty filter
// matches every tier.
func (c *Catalog) Claims(difficulties ...models.Difficulty) []models.Claim {
	if len(difficulties) == 0 {
		return append([]models.Claim(nil), c.claims...)
	}
	allowed := make(map[models.Difficulty]bool, len(difficulties))
	for _, d := range difficulties {
		allowed[d] = true
	}
	var out []models.Claim
	for _, claim := range c.claims {
		if allowed[claim.Difficulty] {
			out = append(out, claim)
		}
	}
	return out
}

// Pick returns n distinct claims matching the difficulty filter, shuffled
// with the given source.
func (c *Catalog) Pick(n int, difficulties []models.Difficulty, rng *rand.Rand) ([]models.Claim, error) {
	pool := c.Claims(difficulties...)
	if len(pool) < n {
		return nil, fmt.Errorf("not enough claims: need %d, have %d", n, len(pool))
	}
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:n], nil
}
