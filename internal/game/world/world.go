// Package world assembles one match: the character registry, the simulation clock, targeting,
// effect resolution and action scheduling, bound to a host presenter and a match journal.
package world

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/action"
	"github.com/cory-johannsen/arena/internal/game/arena"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/effect"
	"github.com/cory-johannsen/arena/internal/game/host"
	"github.com/cory-johannsen/arena/internal/game/targeting"
	"github.com/cory-johannsen/arena/internal/game/timer"
	"github.com/cory-johannsen/arena/internal/game/weapon"
)

// journalTimeout bounds each journal write made from the simulation goroutine.
const journalTimeout = 2 * time.Second

// Options configures a World.
type Options struct {
	Targeting targeting.Options
	Action    action.Options
}

// Outcome is the result of a finished match.
type Outcome struct {
	// Winner is the surviving faction; Draw is set when nobody survived.
	Winner    character.Faction
	Draw      bool
	Survivors []string
	At        time.Duration
}

// CharacterView is a point-in-time view of a combatant for clients.
type CharacterView struct {
	character.Character
	Position host.Vec3
	Hands    [2]action.HandState
	Effects  []effect.Kind
	Moving   bool
}

// World is one match. It is not a singleton: callers own it and pass it where needed.
type World struct {
	matchID   string
	reg       *character.Registry
	queue     *timer.Queue
	arena     *arena.Arena
	presenter host.Presenter
	targets   *targeting.Service
	resolver  *effect.Resolver
	sched     *action.Scheduler
	weapons   *weapon.Table
	journal   Journal
	logger    *zap.Logger

	mu        sync.Mutex
	outcome   *Outcome
	behaviors map[string]string
}

// movingSpatial forwards moves to the presenter so hosts can animate them.
type movingSpatial struct {
	*arena.Arena
	observer host.MoveObserver
}

func (m movingSpatial) MoveTo(id string, dest host.Vec3, travel time.Duration) {
	m.Arena.MoveTo(id, dest, travel)
	if m.observer != nil {
		m.observer.ObserveMove(id, dest, travel)
	}
}

// New creates an empty World.
//
// Precondition: weapons, presenter, journal and logger must be non-nil; rarities may be nil.
// Postcondition: Returns a World at simulation time zero with no characters.
func New(
	weapons *weapon.Table,
	rarities *weapon.RarityTable,
	presenter host.Presenter,
	journal Journal,
	opts Options,
	logger *zap.Logger,
) *World {
	matchID := uuid.NewString()
	logger = logger.With(zap.String("match_id", matchID))
	reg := character.NewRegistry()
	queue := timer.NewQueue()
	a := arena.New(queue.Now)
	observer, _ := presenter.(host.MoveObserver)
	spatial := movingSpatial{Arena: a, observer: observer}
	targets := targeting.NewService(reg, spatial, opts.Targeting)
	resolver := effect.NewResolver(reg, queue, presenter, spatial, rarities, logger.Named("effect"))
	sched := action.NewScheduler(reg, weapons, targets, resolver, queue, presenter, spatial, opts.Action, logger.Named("action"))
	resolver.OnFreeze(func(id string) { sched.Cancel(id) })

	w := &World{
		matchID:   matchID,
		reg:       reg,
		queue:     queue,
		arena:     a,
		presenter: presenter,
		targets:   targets,
		resolver:  resolver,
		sched:     sched,
		weapons:   weapons,
		journal:   journal,
		logger:    logger,
		behaviors: make(map[string]string),
	}
	reg.OnDeath(w.handleDeath)
	return w
}

// MatchID returns the match's unique id.
func (w *World) MatchID() string { return w.matchID }

// Now returns the current simulation time.
func (w *World) Now() time.Duration { return w.queue.Now() }

// Advance moves the simulation clock forward by d, firing every due effect.
func (w *World) Advance(d time.Duration) int { return w.queue.Advance(d) }

// Registry exposes the character registry.
func (w *World) Registry() *character.Registry { return w.reg }

// Scheduler exposes the action scheduler.
func (w *World) Scheduler() *action.Scheduler { return w.sched }

// Targets exposes the targeting service.
func (w *World) Targets() *targeting.Service { return w.targets }

// Resolver exposes the effect resolver.
func (w *World) Resolver() *effect.Resolver { return w.resolver }

// Weapons exposes the weapon table the match was created with.
func (w *World) Weapons() *weapon.Table { return w.weapons }

// Behavior returns the AI domain id assigned to id at spawn, or "" for the default.
func (w *World) Behavior(id string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.behaviors[id]
}

// Spawn creates a combatant from e and places it in the arena.
//
// Postcondition: returns the new id, or an error if the entry is invalid or names an unknown weapon.
func (w *World) Spawn(e RosterEntry) (string, error) {
	spec, err := e.Spec()
	if err != nil {
		return "", err
	}
	for _, wid := range []string{spec.LeftWeapon, spec.RightWeapon} {
		if wid == "" {
			continue
		}
		if _, ok := w.weapons.Get(wid); !ok {
			return "", fmt.Errorf("spawning %q: weapon %q: %w", spec.Name, wid, action.ErrUnknownWeapon)
		}
	}
	id, err := w.reg.Create(spec)
	if err != nil {
		return "", fmt.Errorf("spawning %q: %w", spec.Name, err)
	}
	w.arena.Place(id, e.At(), e.Radius)
	if e.Behavior != "" {
		w.mu.Lock()
		w.behaviors[id] = e.Behavior
		w.mu.Unlock()
	}
	w.presenter.PlayAnimation(id, host.AnimIdle, true)
	w.presenter.UpdateHPBar(id, 1)
	w.logger.Info("character spawned",
		zap.String("character_id", id),
		zap.String("name", spec.Name),
		zap.Stringer("class", spec.Class),
		zap.Stringer("faction", spec.Faction),
	)
	return id, nil
}

// Attack uses hand h of id. Rejections are returned and logged at debug level.
func (w *World) Attack(id string, h character.Hand) (effect.Result, error) {
	res, err := w.sched.Attack(id, h)
	if err != nil {
		w.logger.Debug("attack rejected", zap.String("character_id", id), zap.Stringer("hand", h), zap.Error(err))
	}
	return res, err
}

// MoveThenAttack walks id into range of its target and attacks with hand h.
func (w *World) MoveThenAttack(id string, h character.Hand) (bool, error) {
	moved, err := w.sched.MoveThenAttack(id, h)
	if err != nil {
		w.logger.Debug("move-then-attack rejected", zap.String("character_id", id), zap.Stringer("hand", h), zap.Error(err))
	}
	return moved, err
}

// View returns the client view of one character.
func (w *World) View(id string) (CharacterView, error) {
	c, err := w.reg.Get(id)
	if err != nil {
		return CharacterView{}, err
	}
	return w.view(c), nil
}

func (w *World) view(c character.Character) CharacterView {
	now := w.queue.Now()
	v := CharacterView{Character: c, Moving: w.arena.Moving(c.ID)}
	v.Position, _ = w.arena.Position(c.ID)
	for _, h := range character.Hands {
		v.Hands[h] = action.StateOf(c.Hand(h), now)
	}
	seen := map[effect.Kind]bool{}
	for _, rec := range w.resolver.Active(c.ID) {
		if !seen[rec.Kind] {
			seen[rec.Kind] = true
			v.Effects = append(v.Effects, rec.Kind)
		}
	}
	return v
}

// Snapshot returns every character in spawn order.
func (w *World) Snapshot() []CharacterView {
	all := w.reg.All()
	out := make([]CharacterView, len(all))
	for i, c := range all {
		out[i] = w.view(c)
	}
	return out
}

// Outcome returns the match result once one faction has no living members.
func (w *World) Outcome() (Outcome, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.outcome == nil {
		return Outcome{}, false
	}
	return *w.outcome, true
}

func (w *World) handleDeath(c character.Character) {
	w.presenter.PlayAnimation(c.ID, host.AnimDeath, false)
	w.presenter.UpdateHPBar(c.ID, 0)
	w.sched.Cancel(c.ID)
	w.resolver.Clear(c.ID)
	w.arena.SetSolid(c.ID, false)

	killer, _ := w.resolver.LastAttacker(c.ID)
	w.logger.Info("character died",
		zap.String("character_id", c.ID),
		zap.String("name", c.Name),
		zap.Stringer("faction", c.Faction),
		zap.String("killer_id", killer),
		zap.Duration("at", w.queue.Now()),
	)
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := w.journal.RecordDeath(ctx, DeathEvent{
		MatchID:     w.matchID,
		CharacterID: c.ID,
		Name:        c.Name,
		Faction:     c.HomeFaction.String(),
		KillerID:    killer,
		At:          w.queue.Now(),
	}); err != nil {
		w.logger.Warn("recording death", zap.String("character_id", c.ID), zap.Error(err))
	}
	w.checkOutcome()
}

func (w *World) checkOutcome() {
	living := w.reg.Living()
	counts := map[character.Faction]int{}
	for _, c := range living {
		counts[c.HomeFaction]++
	}
	if counts[character.FactionSun] > 0 && counts[character.FactionMoon] > 0 {
		return
	}

	w.mu.Lock()
	if w.outcome != nil {
		w.mu.Unlock()
		return
	}
	out := Outcome{At: w.queue.Now()}
	switch {
	case counts[character.FactionSun] > 0:
		out.Winner = character.FactionSun
	case counts[character.FactionMoon] > 0:
		out.Winner = character.FactionMoon
	default:
		out.Draw = true
	}
	for _, c := range living {
		out.Survivors = append(out.Survivors, c.ID)
	}
	sort.Strings(out.Survivors)
	w.outcome = &out
	w.mu.Unlock()

	for _, id := range out.Survivors {
		w.sched.Cancel(id)
		w.presenter.PlayAnimation(id, host.AnimWin, true)
	}
	winner := ""
	if !out.Draw {
		winner = out.Winner.String()
	}
	w.logger.Info("match decided",
		zap.String("winner", winner),
		zap.Strings("survivors", out.Survivors),
		zap.Duration("at", out.At),
	)
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()
	if err := w.journal.RecordOutcome(ctx, OutcomeEvent{
		MatchID:   w.matchID,
		Winner:    winner,
		Survivors: out.Survivors,
		At:        out.At,
	}); err != nil {
		w.logger.Warn("recording outcome", zap.Error(err))
	}
}
