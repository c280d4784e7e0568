package ai

import (
	"github.com/cory-johannsen/arena/internal/game/action"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/world"
)

// CombatantState captures a combatant's state at planning time.
type CombatantState struct {
	ID       string
	Name     string
	HP       float64
	MaxHP    float64
	Frozen   bool
	Shield   int
	Distance float64
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP == 0.
func (c CombatantState) HPPercent() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return c.HP / c.MaxHP * 100
}

// HandStatus is what the planner knows about one hand.
type HandStatus struct {
	WeaponID string
	Ready    bool
	Range    float64
}

// State is the snapshot passed to the planner for one combatant. Allies and Enemies are
// living, nearest first.
type State struct {
	Self    CombatantState
	Hands   [2]HandStatus
	Allies  []CombatantState
	Enemies []CombatantState
}

// NearestEnemy returns the closest living enemy, or false.
func (s *State) NearestEnemy() (CombatantState, bool) {
	if len(s.Enemies) == 0 {
		return CombatantState{}, false
	}
	return s.Enemies[0], true
}

// WeakestEnemy returns the living enemy with the lowest HP percentage; ties keep the nearer one.
func (s *State) WeakestEnemy() (CombatantState, bool) {
	if len(s.Enemies) == 0 {
		return CombatantState{}, false
	}
	weakest := s.Enemies[0]
	for _, e := range s.Enemies[1:] {
		if e.HPPercent() < weakest.HPPercent() {
			weakest = e
		}
	}
	return weakest, true
}

// HurtAllies returns allies below full HP.
func (s *State) HurtAllies() []CombatantState {
	var out []CombatantState
	for _, a := range s.Allies {
		if a.HP < a.MaxHP {
			out = append(out, a)
		}
	}
	return out
}

// BuildState snapshots id's view of the match.
//
// Precondition: id must be a living character in w.
func BuildState(w *world.World, id string) (*State, error) {
	self, err := w.Registry().Get(id)
	if err != nil {
		return nil, err
	}
	st := &State{Self: combatantState(w, id, self)}
	for _, h := range character.Hands {
		slot := self.Hand(h)
		hs := HandStatus{WeaponID: slot.WeaponID}
		if wp, ok := w.Weapons().Get(slot.WeaponID); ok {
			hs.Range = wp.Range
			hs.Ready = action.StateOf(slot, w.Now()) == action.Ready
		}
		st.Hands[h] = hs
	}
	allies, err := w.Targets().AlliesOf(id)
	if err != nil {
		return nil, err
	}
	enemies, err := w.Targets().EnemiesOf(id)
	if err != nil {
		return nil, err
	}
	for _, a := range allies {
		st.Allies = append(st.Allies, combatantState(w, id, a))
	}
	for _, e := range enemies {
		st.Enemies = append(st.Enemies, combatantState(w, id, e))
	}
	return st, nil
}

func combatantState(w *world.World, from string, c character.Character) CombatantState {
	cs := CombatantState{
		ID:     c.ID,
		Name:   c.Name,
		HP:     c.CurrentHP,
		MaxHP:  c.MaxHP,
		Frozen: c.IsFrozen(),
		Shield: c.Shield,
	}
	if from != c.ID {
		cs.Distance, _ = w.Targets().Distance(from, c.ID)
	}
	return cs
}
