package luahandler

import (
	lua "github.com/yuin/gopher-lua"
)

// Capability unlocks a Lua library that the sandbox keeps closed.
type Capability string

// Available capabilities.
const (
	CapabilityOS Capability = "os"
	CapabilityIO Capability = "io"
)

// safeModules can always be required. They are already open as globals.
var safeModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// openSafeLibraries opens base, table, string and math, plus whatever the
// granted capabilities unlock.
func openSafeLibraries(L *lua.LState, caps map[Capability]bool) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	if caps[CapabilityOS] {
		lua.OpenOs(L)
	}
	if caps[CapabilityIO] {
		lua.OpenIo(L)
	}
}

// installSandbox removes the loaders that reach the file system or compile
// strings, and replaces require with a whitelist.
func installSandbox(L *lua.LState, caps map[Capability]bool) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "module"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if safeModules[name] || caps[Capability(name)] {
			L.Push(L.GetGlobal(name))
			return 1
		}
		L.RaiseError("module %q is not available", name)
		return 0
	}))
}
