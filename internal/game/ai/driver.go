package ai

import (
	"errors"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/action"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/world"
	"github.com/cory-johannsen/arena/internal/scripting"
)

// Driver decides what every idle combatant does on each AI tick.
//
// A combatant is driven, in order of preference, by the Lua ThinkHook when the loaded scripts
// define one, by the planner for its assigned behaviour, or by the built-in fallback that
// attacks with every ready hand.
type Driver struct {
	w             *world.World
	planners      *Registry
	scripts       *scripting.Manager
	defaultDomain string
	logger        *zap.Logger
}

// NewDriver creates a Driver. planners and scripts may be nil.
//
// Precondition: w and logger must be non-nil.
func NewDriver(w *world.World, planners *Registry, scripts *scripting.Manager, defaultDomain string, logger *zap.Logger) *Driver {
	if planners == nil {
		planners = NewRegistry()
	}
	return &Driver{w: w, planners: planners, scripts: scripts, defaultDomain: defaultDomain, logger: logger}
}

// Think runs one decision pass and returns the number of actions that took effect.
//
// Postcondition: no action is attempted once the match has an outcome.
func (d *Driver) Think() int {
	scripted := d.scripts != nil && d.scripts.HasHook(scripting.ThinkHook)
	acted := 0
	for _, c := range d.w.Registry().Living() {
		if _, over := d.w.Outcome(); over {
			break
		}
		if !d.idle(c.ID) {
			continue
		}
		if scripted {
			if _, err := d.scripts.CallHook(scripting.ThinkHook, lua.LString(c.ID)); err != nil {
				d.logger.Warn("think hook", zap.String("character_id", c.ID), zap.Error(err))
			}
			continue
		}
		acted += d.drive(c.ID)
	}
	return acted
}

// idle reports whether id is alive, unfrozen, and neither walking nor waiting to arrive.
func (d *Driver) idle(id string) bool {
	v, err := d.w.View(id)
	if err != nil || !v.Alive || v.IsFrozen() || v.Moving {
		return false
	}
	return !d.w.Scheduler().Pending(id)
}

func (d *Driver) drive(id string) int {
	p, ok := d.planners.Resolve(d.w.Behavior(id), d.defaultDomain)
	if !ok {
		return d.fallback(id)
	}
	state, err := BuildState(d.w, id)
	if err != nil {
		d.logger.Debug("building planner state", zap.String("character_id", id), zap.Error(err))
		return 0
	}
	plan, err := p.Plan(state)
	if err != nil {
		d.logger.Debug("planning", zap.String("character_id", id), zap.Error(err))
		return 0
	}
	acted := 0
	for _, pa := range plan {
		switch pa.Action {
		case ActionPass:
			return acted
		case ActionAttack:
			if res, err := d.w.Attack(id, pa.Hand); err == nil && res.Acted {
				acted++
			}
		case ActionMoveAttack:
			moved, err := d.w.MoveThenAttack(id, pa.Hand)
			if err != nil {
				continue
			}
			acted++
			if moved {
				return acted
			}
		}
	}
	return acted
}

// fallback attacks with the right hand, then the left, walking into range when needed.
func (d *Driver) fallback(id string) int {
	acted := 0
	for _, h := range []character.Hand{character.HandRight, character.HandLeft} {
		if st, err := d.w.Scheduler().State(id, h); err != nil || st != action.Ready {
			continue
		}
		moved, err := d.w.MoveThenAttack(id, h)
		if errors.Is(err, action.ErrZeroRange) {
			if res, err := d.w.Attack(id, h); err == nil && res.Acted {
				acted++
			}
			continue
		}
		if err != nil {
			continue
		}
		acted++
		if moved {
			break
		}
	}
	return acted
}
