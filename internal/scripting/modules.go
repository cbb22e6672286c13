package scripting

import (
	"math"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the craft.* Lua table into L:
//
//	craft.inf           positive infinity; returning it from a heuristic prunes the state
//	craft.log(msg)      writes msg to the Manager logger at Debug level
//	craft.sum(inv)      total quantity held across every item
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: craft global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	craft := L.NewTable()
	craft.RawSetString("inf", lua.LNumber(math.Inf(1)))
	craft.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	craft.RawSetString("sum", L.NewFunction(func(L *lua.LState) int {
		inv := L.CheckTable(1)
		total := 0.0
		inv.ForEach(func(_, v lua.LValue) {
			if n, ok := v.(lua.LNumber); ok {
				total += float64(n)
			}
		})
		L.Push(lua.LNumber(total))
		return 1
	}))
	L.SetGlobal("craft", craft)
}
