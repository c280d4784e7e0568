package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.log.debug|info|warn|error(msg)
//	engine.combat.attack(id, hand)       -> ok, err
//	engine.combat.move_attack(id, hand)  -> moved, err
//	engine.combat.ready(id, hand)        -> bool
//	engine.query.character(id)           -> table | nil
//	engine.query.enemies(id)             -> array of tables, nearest first
//	engine.query.allies(id)              -> array of tables, nearest first
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "combat", m.combatModule(L))
	L.SetField(engine, "query", m.queryModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, fn := range levels {
		fn := fn
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	return mod
}

// actionFn adapts an (id, hand) -> (bool, error) callback to Lua's ok, err convention.
func actionFn(get func() func(id, hand string) (bool, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		fn := get()
		if fn == nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString("not available"))
			return 2
		}
		ok, err := fn(L.CheckString(1), L.OptString(2, "right"))
		L.Push(lua.LBool(ok))
		if err != nil {
			L.Push(lua.LString(err.Error()))
		} else {
			L.Push(lua.LNil)
		}
		return 2
	}
}

func (m *Manager) combatModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "attack", L.NewFunction(actionFn(func() func(string, string) (bool, error) { return m.Attack })))
	L.SetField(mod, "move_attack", L.NewFunction(actionFn(func() func(string, string) (bool, error) { return m.MoveAttack })))
	L.SetField(mod, "ready", L.NewFunction(func(L *lua.LState) int {
		if m.Ready == nil {
			L.Push(lua.LFalse)
			return 1
		}
		L.Push(lua.LBool(m.Ready(L.CheckString(1), L.OptString(2, "right"))))
		return 1
	}))
	return mod
}

func (m *Manager) queryModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "character", L.NewFunction(func(L *lua.LState) int {
		if m.GetCombatant == nil {
			L.Push(lua.LNil)
			return 1
		}
		info := m.GetCombatant(L.CheckString(1))
		if info == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(combatantTable(L, *info))
		return 1
	}))
	list := func(get func() func(string) []CombatantInfo) lua.LGFunction {
		return func(L *lua.LState) int {
			out := L.NewTable()
			if fn := get(); fn != nil {
				for _, info := range fn(L.CheckString(1)) {
					out.Append(combatantTable(L, info))
				}
			}
			L.Push(out)
			return 1
		}
	}
	L.SetField(mod, "enemies", L.NewFunction(list(func() func(string) []CombatantInfo { return m.Enemies })))
	L.SetField(mod, "allies", L.NewFunction(list(func() func(string) []CombatantInfo { return m.Allies })))
	return mod
}

func combatantTable(L *lua.LState, info CombatantInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(info.ID))
	L.SetField(t, "name", lua.LString(info.Name))
	L.SetField(t, "class", lua.LString(info.Class))
	L.SetField(t, "faction", lua.LString(info.Faction))
	L.SetField(t, "hp", lua.LNumber(info.HP))
	L.SetField(t, "max_hp", lua.LNumber(info.MaxHP))
	L.SetField(t, "frozen", lua.LBool(info.Frozen))
	L.SetField(t, "shield", lua.LNumber(info.Shield))
	L.SetField(t, "distance", lua.LNumber(info.Distance))
	return t
}
