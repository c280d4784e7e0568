//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/cory-johannsen/arena/internal/config"
)

func initializeApp(ctx context.Context, cfg config.Config) (*App, func(), error) {
	wire.Build(
		provideLogger,
		provideRarities,
		provideWeapons,
		provideBridge,
		providePresenter,
		provideJournal,
		provideWorld,
		provideScripts,
		providePlanners,
		provideDriver,
		provideLoop,
		provideLifecycle,
		provideApp,
	)
	return nil, nil, nil
}
