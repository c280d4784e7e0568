package ai

import (
	"github.com/cory-johannsen/arena/internal/game/action"
	"github.com/cory-johannsen/arena/internal/game/character"
	"github.com/cory-johannsen/arena/internal/game/world"
	"github.com/cory-johannsen/arena/internal/scripting"
)

// BindScripting points the engine.* Lua callbacks of m at w.
//
// Precondition: m and w must be non-nil.
// Postcondition: every callback field of m is set.
func BindScripting(m *scripting.Manager, w *world.World) {
	m.GetCombatant = func(id string) *scripting.CombatantInfo {
		c, err := w.Registry().Get(id)
		if err != nil {
			return nil
		}
		info := combatantInfo(w, "", c)
		return &info
	}
	m.Enemies = func(id string) []scripting.CombatantInfo {
		list, err := w.Targets().EnemiesOf(id)
		if err != nil {
			return nil
		}
		return combatantInfos(w, id, list)
	}
	m.Allies = func(id string) []scripting.CombatantInfo {
		list, err := w.Targets().AlliesOf(id)
		if err != nil {
			return nil
		}
		return combatantInfos(w, id, list)
	}
	m.Ready = func(id, hand string) bool {
		h, err := character.ParseHand(hand)
		if err != nil {
			return false
		}
		st, err := w.Scheduler().State(id, h)
		return err == nil && st == action.Ready
	}
	m.Attack = func(id, hand string) (bool, error) {
		h, err := character.ParseHand(hand)
		if err != nil {
			return false, err
		}
		res, err := w.Attack(id, h)
		return err == nil && res.Acted, err
	}
	m.MoveAttack = func(id, hand string) (bool, error) {
		h, err := character.ParseHand(hand)
		if err != nil {
			return false, err
		}
		if _, err := w.MoveThenAttack(id, h); err != nil {
			return false, err
		}
		return true, nil
	}
}

func combatantInfos(w *world.World, from string, list []character.Character) []scripting.CombatantInfo {
	out := make([]scripting.CombatantInfo, len(list))
	for i, c := range list {
		out[i] = combatantInfo(w, from, c)
	}
	return out
}

func combatantInfo(w *world.World, from string, c character.Character) scripting.CombatantInfo {
	info := scripting.CombatantInfo{
		ID:      c.ID,
		Name:    c.Name,
		Class:   c.Class.String(),
		Faction: c.Faction.String(),
		HP:      c.CurrentHP,
		MaxHP:   c.MaxHP,
		Frozen:  c.IsFrozen(),
		Shield:  c.Shield,
	}
	if from != "" {
		info.Distance, _ = w.Targets().Distance(from, c.ID)
	}
	return info
}
