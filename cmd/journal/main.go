// Package main prints the recorded deaths and outcome of one match from the Postgres journal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	matchID := flag.String("match", "", "match id to report (required)")
	flag.Parse()

	if *matchID == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewJournalRepository(pool.DB())

	deaths, err := repo.Deaths(ctx, *matchID)
	if err != nil {
		log.Fatalf("reading deaths: %v", err)
	}
	fmt.Fprintf(os.Stdout, "match %s\n", *matchID)
	for _, d := range deaths {
		killer := d.KillerID
		if killer == "" {
			killer = "-"
		}
		fmt.Fprintf(os.Stdout, "  %9s  %-20s %-5s killed by %s\n", d.At.Round(time.Millisecond), d.Name, d.Faction, killer)
	}

	kills, err := repo.Kills(ctx, *matchID)
	if err != nil {
		log.Fatalf("reading kills: %v", err)
	}
	killers := make([]string, 0, len(kills))
	for id := range kills {
		killers = append(killers, id)
	}
	sort.Slice(killers, func(i, j int) bool {
		if kills[killers[i]] != kills[killers[j]] {
			return kills[killers[i]] > kills[killers[j]]
		}
		return killers[i] < killers[j]
	})
	for _, id := range killers {
		fmt.Fprintf(os.Stdout, "  kills %-20s %d\n", id, kills[id])
	}

	out, err := repo.Outcome(ctx, *matchID)
	switch {
	case errors.Is(err, postgres.ErrOutcomeNotFound):
		fmt.Fprintln(os.Stdout, "  no outcome recorded")
	case err != nil:
		log.Fatalf("reading outcome: %v", err)
	case out.Winner == "":
		fmt.Fprintf(os.Stdout, "  draw at %s\n", out.At)
	default:
		fmt.Fprintf(os.Stdout, "  %s won at %s, survivors %v\n", out.Winner, out.At, out.Survivors)
	}
	fmt.Fprintf(os.Stdout, "[%s]\n", time.Since(start))
}
