package hostkit

import (
	"fmt"
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// newLuaState creates a Lua state with only the side-effect free standard
// libraries and a "plugin" table exposing the plugin id and a logger.
func newLuaState(id string, logger *slog.Logger) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// io, os, debug and package are not opened.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	api := L.NewTable()
	L.SetField(api, "id", lua.LString(id))
	L.SetField(api, "log", L.NewFunction(func(L *lua.LState) int {
		logger.Info(L.CheckString(1), "plugin", id)
		return 0
	}))
	L.SetGlobal("plugin", api)
	return L
}

// callLua calls the global function fn if it exists. It returns the first
// result converted to a string, or "" when fn is absent or returns nothing.
func callLua(L *lua.LState, fn string, args ...string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	f := L.GetGlobal(fn)
	if f == lua.LNil {
		return "", nil
	}
	if f.Type() != lua.LTFunction {
		return "", fmt.Errorf("%q is not a function (got %s)", fn, f.Type())
	}

	top := L.GetTop()
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		largs[i] = lua.LString(a)
	}
	if err := L.CallByParam(lua.P{Fn: f, NRet: 1, Protect: true}, largs...); err != nil {
		return "", fmt.Errorf("call %s: %w", fn, err)
	}
	ret := L.Get(-1)
	L.SetTop(top)

	if ret == lua.LNil {
		return "", nil
	}
	return ret.String(), nil
}
