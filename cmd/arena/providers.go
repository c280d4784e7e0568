package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/action"
	"github.com/cory-johannsen/arena/internal/game/ai"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/loop"
	"github.com/cory-johannsen/arena/internal/game/targeting"
	"github.com/cory-johannsen/arena/internal/game/weapon"
	"github.com/cory-johannsen/arena/internal/game/world"
	"github.com/cory-johannsen/arena/internal/host/wsbridge"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/scripting"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

// App is the assembled arena process.
type App struct {
	Logger    *zap.Logger
	World     *world.World
	Loop      *loop.Loop
	Lifecycle *server.Lifecycle
}

func provideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideRarities(cfg config.Config) (*weapon.RarityTable, error) {
	if cfg.Content.Rarities == "" {
		return nil, nil
	}
	rarities, err := weapon.LoadRarities(cfg.Content.Rarities)
	if err != nil {
		return nil, fmt.Errorf("loading rarities: %w", err)
	}
	return rarities, nil
}

func provideWeapons(cfg config.Config, rarities *weapon.RarityTable, logger *zap.Logger) (*weapon.Table, error) {
	table, err := weapon.LoadTable(cfg.Content.Weapons)
	if err != nil {
		return nil, fmt.Errorf("loading weapons: %w", err)
	}
	if rarities != nil {
		if err := table.CheckRarities(rarities); err != nil {
			return nil, err
		}
	}
	logger.Info("weapons loaded", zap.Int("count", table.Len()))
	return table, nil
}

func provideBridge(cfg config.Config, logger *zap.Logger) *wsbridge.Bridge {
	return wsbridge.New(wsbridge.Options{Host: cfg.Bridge.Host, Port: cfg.Bridge.Port}, logger.Named("bridge"))
}

func providePresenter(cfg config.Config, bridge *wsbridge.Bridge, logger *zap.Logger) host.Presenter {
	fanout := host.Fanout{host.NewLogPresenter(logger.Named("host"))}
	if cfg.Bridge.Enabled {
		fanout = append(fanout, bridge)
	}
	return fanout
}

func provideJournal(ctx context.Context, cfg config.Config, logger *zap.Logger) (world.Journal, func(), error) {
	if !cfg.Database.Enabled {
		logger.Info("database disabled, journaling in memory")
		return world.NewMemoryJournal(), func() {}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("name", cfg.Database.Name),
	)
	return postgres.NewJournalRepository(pool.DB()), pool.Close, nil
}

func provideWorld(
	cfg config.Config,
	weapons *weapon.Table,
	rarities *weapon.RarityTable,
	presenter host.Presenter,
	journal world.Journal,
	logger *zap.Logger,
) (*world.World, error) {
	w := world.New(weapons, rarities, presenter, journal, world.Options{
		Targeting: targeting.Options{
			EyeHeight:    cfg.Simulation.EyeHeight,
			OriginOffset: cfg.Simulation.OriginOffset,
		},
		Action: action.Options{StopMargin: cfg.Simulation.StopMargin},
	}, logger.Named("world"))
	ids, err := w.LoadRoster(cfg.Content.Roster)
	if err != nil {
		return nil, fmt.Errorf("loading roster: %w", err)
	}
	logger.Info("roster spawned", zap.String("match_id", w.MatchID()), zap.Int("combatants", len(ids)))
	return w, nil
}

func provideScripts(cfg config.Config, w *world.World, logger *zap.Logger) (*scripting.Manager, func(), error) {
	m := scripting.NewManager(logger.Named("lua"))
	ai.BindScripting(m, w)
	if cfg.Content.Scripts != "" {
		if err := m.Load(cfg.Content.Scripts, cfg.AI.InstructionLimit); err != nil {
			m.Close()
			return nil, nil, err
		}
	}
	return m, m.Close, nil
}

func providePlanners(cfg config.Config, scripts *scripting.Manager, logger *zap.Logger) (*ai.Registry, error) {
	reg := ai.NewRegistry()
	if cfg.Content.Domains == "" {
		return reg, nil
	}
	domains, err := ai.LoadDomains(cfg.Content.Domains)
	if err != nil {
		return nil, fmt.Errorf("loading behaviour domains: %w", err)
	}
	if err := reg.RegisterAll(domains, scripts); err != nil {
		return nil, err
	}
	if cfg.AI.DefaultDomain != "" {
		if _, ok := reg.PlannerFor(cfg.AI.DefaultDomain); !ok {
			return nil, fmt.Errorf("default behaviour domain %q not loaded", cfg.AI.DefaultDomain)
		}
	}
	logger.Info("behaviour domains loaded", zap.Strings("domains", reg.IDs()))
	return reg, nil
}

func provideDriver(cfg config.Config, w *world.World, planners *ai.Registry, scripts *scripting.Manager, logger *zap.Logger) *ai.Driver {
	return ai.NewDriver(w, planners, scripts, cfg.AI.DefaultDomain, logger.Named("ai"))
}

func provideLoop(cfg config.Config, w *world.World, driver *ai.Driver, logger *zap.Logger) *loop.Loop {
	return loop.New(w, driver, loop.Options{
		Tick:          cfg.Simulation.TickInterval,
		Speed:         cfg.Simulation.Speed,
		StopOnOutcome: cfg.Simulation.StopOnOutcome,
	}, logger.Named("loop"))
}

func provideLifecycle(cfg config.Config, l *loop.Loop, bridge *wsbridge.Bridge, logger *zap.Logger) *server.Lifecycle {
	lc := server.NewLifecycle(logger)
	if cfg.Bridge.Enabled {
		bridge.Attach(l, l.World().Snapshot)
		lc.Add("bridge", bridge)
	}
	lc.Add("match", l)
	return lc
}

func provideApp(logger *zap.Logger, w *world.World, l *loop.Loop, lc *server.Lifecycle) *App {
	return &App{Logger: logger, World: w, Loop: l, Lifecycle: lc}
}
