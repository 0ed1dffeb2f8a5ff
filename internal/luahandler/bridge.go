package luahandler

import (
	"fmt"
	"reflect"

	lua "github.com/yuin/gopher-lua"
)

// toGo converts a Lua value to a Go value. Whole numbers become int64,
// sequences become []any and other tables map[string]any. A table that
// contains itself converts to nil at the point of recursion; tables shared
// between siblings are converted once per occurrence.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, make(map[*lua.LTable]bool))
}

func toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		out := tableToGo(v, visited)
		delete(visited, v)
		return out
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	isArray := true
	maxN, count := 0, 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				if n > maxN {
					maxN = n
				}
				return
			}
		}
		isArray = false
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = toGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = toGoVisited(v, visited)
	})
	return m
}

// toLua converts a Go value to a Lua value. Values with no Lua
// counterpart are passed as userdata.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, e := range val {
			t.RawSetInt(i+1, toLua(L, e))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, e := range val {
			t.RawSetString(k, toLua(L, e))
		}
		return t
	}
	return reflectToLua(L, v)
}

func reflectToLua(L *lua.LState, v any) lua.LValue {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		t := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, toLua(L, rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		t := L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSet(toLua(L, iter.Key().Interface()), toLua(L, iter.Value().Interface()))
		}
		return t
	}
	ud := L.NewUserData()
	ud.Value = v
	return ud
}
