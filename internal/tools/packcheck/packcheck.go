package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mkor14/veracity/internal/catalog"
	"github.com/mkor14/veracity/internal/models"
)

// packcheck validates every claim pack in a directory before it ships to a
// classroom: parse errors, duplicate claim ids across packs, and per-tier
// claim counts.
func main() {
	dir := "claimpacks"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read dir: %v\n", err)
		os.Exit(1)
	}

	var (
		files   int
		claims  int
		invalid int
		byTier  = map[models.Difficulty]int{}
		seen    = map[uuid.UUID]string{}
		dupes   int
	)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		files++

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: read: %v\n", entry.Name(), err)
			invalid++
			continue
		}
		pack, err := catalog.ParsePack(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", entry.Name(), err)
			invalid++
			continue
		}

		for _, claim := range pack.Claims {
			claims++
			byTier[claim.Difficulty]++
			if prev, ok := seen[claim.ID]; ok {
				fmt.Fprintf(os.Stderr, "%s: claim %s already defined in %s\n",
					entry.Name(), claim.ID, prev)
				dupes++
				continue
			}
			seen[claim.ID] = entry.Name()
		}

		fmt.Printf("%-30s %s: %d claims\n", entry.Name(), pack.Name, len(pack.Claims))
	}

	if files == 0 {
		fmt.Fprintf(os.Stderr, "no pack files found in %s\n", dir)
		os.Exit(1)
	}

	fmt.Printf("\nPack check complete: %d files, %d claims", files, claims)
	for _, tier := range []models.Difficulty{
		models.DifficultyEasy,
		models.DifficultyMedium,
		models.DifficultyHard,
		models.DifficultyExpert,
	} {
		if n := byTier[tier]; n > 0 {
			fmt.Printf(", %d %s", n, tier)
		}
	}
	fmt.Println()

	if invalid > 0 || dupes > 0 {
		fmt.Fprintf(os.Stderr, "%d invalid packs, %d duplicate ids\n", invalid, dupes)
		os.Exit(1)
	}
}
