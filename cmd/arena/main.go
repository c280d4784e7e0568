// Package main runs one arena match: it loads content, spawns the roster, drives
// computer-controlled combatants, and optionally serves a websocket host bridge.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx := context.Background()
	app, cleanup, err := initializeApp(ctx, cfg)
	if err != nil {
		log.Fatalf("initializing arena: %v", err)
	}
	defer cleanup()

	app.Logger.Info("arena ready",
		zap.String("match_id", app.World.MatchID()),
		zap.Bool("bridge", cfg.Bridge.Enabled),
		zap.Bool("database", cfg.Database.Enabled),
		zap.Duration("startup", time.Since(start)),
	)

	runErr := app.Lifecycle.Run(ctx)

	if out, ok := app.World.Outcome(); ok {
		fields := []zap.Field{
			zap.Duration("sim_time", out.At),
			zap.Strings("survivors", out.Survivors),
		}
		if out.Draw {
			app.Logger.Info("match ended in a draw", fields...)
		} else {
			app.Logger.Info("match won", append(fields, zap.String("winner", out.Winner.String()))...)
		}
	}
	if runErr != nil {
		app.Logger.Error("arena stopped with error", zap.Error(runErr))
		cleanup()
		log.Fatalf("arena: %v", runErr)
	}
}
