package heuristic

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/craftplan/internal/planning/inventory"
	"github.com/cory-johannsen/craftplan/internal/scripting"
)

// DefaultHook is the Lua global called by Lua estimators.
const DefaultHook = "heuristic"

// ScriptCaller is the interface required by Lua to evaluate estimates.
type ScriptCaller interface {
	// Call invokes a Lua hook in key's VM with VM-built arguments.
	// Returns (LNil, nil) if the hook is not defined.
	Call(key, hook string, build scripting.ArgBuilder) (lua.LValue, error)
}

// Lua delegates estimates to a Lua function receiving the inventory as a
// table of item name to quantity, e.g.
//
//	function heuristic(inv)
//	  if inv.bench > 1 then return craft.inf end
//	  return 0
//	end
//
// A nil, non-numeric or NaN return (including a failed call) estimates 0;
// negative values are clamped to 0.
type Lua struct {
	caller ScriptCaller
	key    string
	hook   string
}

// NewLua constructs a Lua estimator calling hook in key's VM.
//
// Precondition: caller must not be nil.
func NewLua(caller ScriptCaller, key, hook string) *Lua {
	if caller == nil {
		panic("heuristic.NewLua: caller must not be nil")
	}
	if hook == "" {
		hook = DefaultHook
	}
	return &Lua{caller: caller, key: key, hook: hook}
}

// Estimate calls the Lua hook for s.
func (l *Lua) Estimate(s inventory.State) float64 {
	ret, err := l.caller.Call(l.key, l.hook, func(L *lua.LState) []lua.LValue {
		tbl := L.CreateTable(0, s.Vocabulary().Len())
		for i, name := range s.Vocabulary().Names() {
			tbl.RawSetString(name, lua.LNumber(s.At(i)))
		}
		return []lua.LValue{tbl}
	})
	if err != nil {
		return 0
	}
	n, ok := ret.(lua.LNumber)
	if !ok {
		return 0
	}
	v := float64(n)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
