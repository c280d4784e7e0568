// Package main validates arena content files, or prints the weapon table JSON schema.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/ai"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/weapon"
	"github.com/cory-johannsen/arena/internal/game/world"
)

func main() {
	start := time.Now()

	weaponsPath := flag.String("weapons", "content/weapons.yaml", "weapon table YAML")
	raritiesPath := flag.String("rarities", "content/rarities.yaml", "rarity table YAML; empty = skip")
	rosterPath := flag.String("roster", "content/roster.yaml", "roster YAML; empty = skip")
	domainsDir := flag.String("domains", "content/behaviors", "behaviour domain directory; empty = skip")
	schema := flag.Bool("schema", false, "print the weapon table JSON schema and exit")
	flag.Parse()

	if *schema {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(weapon.Schema()); err != nil {
			log.Fatalf("encoding schema: %v", err)
		}
		return
	}

	if err := check(*weaponsPath, *raritiesPath, *rosterPath, *domainsDir); err != nil {
		log.Fatalf("content check failed: %v", err)
	}
	fmt.Fprintf(os.Stdout, "content ok [%s]\n", time.Since(start))
}

func check(weaponsPath, raritiesPath, rosterPath, domainsDir string) error {
	table, err := weapon.LoadTable(weaponsPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "weapons: %d\n", table.Len())

	var rarities *weapon.RarityTable
	if raritiesPath != "" {
		if rarities, err = weapon.LoadRarities(raritiesPath); err != nil {
			return err
		}
		if err := table.CheckRarities(rarities); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "rarities: %d\n", rarities.Len())
	}

	domains := map[string]bool{}
	if domainsDir != "" {
		loaded, err := ai.LoadDomains(domainsDir)
		if err != nil {
			return err
		}
		for _, d := range loaded {
			domains[d.ID] = true
		}
		fmt.Fprintf(os.Stdout, "domains: %d\n", len(loaded))
	}

	if rosterPath != "" {
		w := world.New(table, rarities, host.Nop{}, world.NewMemoryJournal(), world.Options{}, zap.NewNop())
		ids, err := w.LoadRoster(rosterPath)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if b := w.Behavior(id); b != "" && domainsDir != "" && !domains[b] {
				return fmt.Errorf("roster character %q uses unknown behaviour %q", id, b)
			}
		}
		fmt.Fprintf(os.Stdout, "roster: %d\n", len(ids))
	}
	return nil
}
