package ai

import (
	"errors"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/arena/internal/game/character"
)

// ScriptCaller evaluates preconditions the planner does not implement itself.
type ScriptCaller interface {
	// CallHook calls a named Lua function. Returns (LNil, nil) if the function is not defined.
	CallHook(hook string, args ...lua.LValue) (lua.LValue, error)
}

// PlannedAction is one primitive action produced by the planner.
type PlannedAction struct {
	Action Action
	Hand   character.Hand
}

// maxSteps bounds decomposition so a recursive domain cannot spin.
const maxSteps = 32

// Planner evaluates an HTN domain for one combatant at a time.
type Planner struct {
	domain *Domain
	caller ScriptCaller
}

// NewPlanner constructs a Planner. caller may be nil, in which case unknown preconditions fail.
//
// Precondition: domain must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	return &Planner{domain: domain, caller: caller}
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// Plan decomposes RootTask against state and returns the ordered primitive actions.
//
// Precondition: state must not be nil.
// Postcondition: returns a non-nil slice (may be empty); Lua failures count as a false precondition.
func (p *Planner) Plan(state *State) ([]PlannedAction, error) {
	if state == nil {
		return nil, errors.New("ai.Planner.Plan: state must not be nil")
	}
	queue := []string{RootTask}
	result := []PlannedAction{}

	for steps := 0; len(queue) > 0 && steps < maxSteps; steps++ {
		current := queue[0]
		queue = queue[1:]

		if op, ok := p.domain.OperatorByID(current); ok {
			pa := PlannedAction{Action: op.Action}
			if op.Action != ActionPass {
				pa.Hand, _ = character.ParseHand(op.Hand)
			}
			result = append(result, pa)
			continue
		}

		method := p.findApplicableMethod(current, state)
		if method == nil {
			continue
		}
		queue = append(append([]string{}, method.Subtasks...), queue...)
	}
	return result, nil
}

// findApplicableMethod returns the first Method for taskID whose precondition passes, or nil.
func (p *Planner) findApplicableMethod(taskID string, state *State) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if m.Precondition == "" || p.check(m.Precondition, state) {
			return m
		}
	}
	return nil
}

// check evaluates one precondition. A leading "!" negates it.
func (p *Planner) check(cond string, state *State) bool {
	if neg, ok := strings.CutPrefix(cond, "!"); ok {
		return !p.check(neg, state)
	}
	name, arg, _ := strings.Cut(cond, ":")
	switch name {
	case "has_enemy":
		return len(state.Enemies) > 0
	case "ally_hurt":
		return len(state.HurtAllies()) > 0
	case "shielded":
		return state.Self.Shield > 0
	case "ready":
		h, err := character.ParseHand(arg)
		return err == nil && state.Hands[h].Ready
	case "in_range":
		h, err := character.ParseHand(arg)
		if err != nil {
			return false
		}
		e, ok := state.NearestEnemy()
		return ok && state.Hands[h].Range > 0 && e.Distance <= state.Hands[h].Range
	case "hp_below":
		pct, err := strconv.ParseFloat(arg, 64)
		return err == nil && state.Self.HPPercent() < pct
	}
	if p.caller == nil {
		return false
	}
	val, err := p.caller.CallHook(cond, lua.LString(state.Self.ID))
	return err == nil && val == lua.LTrue
}
