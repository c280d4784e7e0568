package host

import (
	"time"

	"go.uber.org/zap"
)

// LogPresenter writes every presentation command to a zap logger at debug level.
type LogPresenter struct {
	logger *zap.Logger
}

// NewLogPresenter creates a LogPresenter.
//
// Precondition: logger must not be nil.
func NewLogPresenter(logger *zap.Logger) *LogPresenter {
	return &LogPresenter{logger: logger.Named("presenter")}
}

func (p *LogPresenter) PlayAnimation(id string, kind AnimationKind, loop bool) {
	p.logger.Debug("animation",
		zap.String("character_id", id),
		zap.String("clip", string(kind)),
		zap.Bool("loop", loop),
	)
}

func (p *LogPresenter) SpawnEffect(kind EffectKind, pos Vec3, opts EffectOptions) {
	fields := []zap.Field{
		zap.String("effect", string(kind)),
		zap.Any("position", pos),
	}
	if opts.Color != "" {
		fields = append(fields, zap.String("color", opts.Color))
	}
	if opts.To != nil {
		fields = append(fields, zap.Any("to", *opts.To))
	}
	if opts.Radius > 0 {
		fields = append(fields, zap.Float64("radius", opts.Radius))
	}
	p.logger.Debug("effect", fields...)
}

func (p *LogPresenter) PlaySound(name string, pos Vec3, maxDistance float64) {
	p.logger.Debug("sound",
		zap.String("sound", name),
		zap.Any("position", pos),
		zap.Float64("max_distance", maxDistance),
	)
}

func (p *LogPresenter) UpdateHPBar(id string, fraction float64) {
	p.logger.Debug("hp_bar", zap.String("character_id", id), zap.Float64("fraction", fraction))
}

func (p *LogPresenter) ObserveMove(id string, dest Vec3, travel time.Duration) {
	p.logger.Debug("move", zap.String("character_id", id), zap.Any("dest", dest), zap.Duration("travel", travel))
}

// Fanout forwards every command to each of its presenters in order.
type Fanout []Presenter

func (f Fanout) PlayAnimation(id string, kind AnimationKind, loop bool) {
	for _, p := range f {
		p.PlayAnimation(id, kind, loop)
	}
}

func (f Fanout) SpawnEffect(kind EffectKind, pos Vec3, opts EffectOptions) {
	for _, p := range f {
		p.SpawnEffect(kind, pos, opts)
	}
}

func (f Fanout) PlaySound(name string, pos Vec3, maxDistance float64) {
	for _, p := range f {
		p.PlaySound(name, pos, maxDistance)
	}
}

func (f Fanout) UpdateHPBar(id string, fraction float64) {
	for _, p := range f {
		p.UpdateHPBar(id, fraction)
	}
}

// ObserveMove forwards to every presenter implementing MoveObserver.
func (f Fanout) ObserveMove(id string, dest Vec3, travel time.Duration) {
	for _, p := range f {
		if m, ok := p.(MoveObserver); ok {
			m.ObserveMove(id, dest, travel)
		}
	}
}
