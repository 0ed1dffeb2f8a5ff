package handler

import (
	"fmt"
	"math"
	"reflect"

	"github.com/dshills/composite/internal/iface"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ValueHandler re-invokes each method on a Go value by name.
//
// Arguments are assigned or converted to the parameter types of the target
// method. A trailing error result becomes the returned error; the remaining
// results are returned as nil, a single value, or a []any.
type ValueHandler struct {
	target reflect.Value
}

// ForValue creates a ValueHandler for target. Methods are looked up on the
// value as given, so pass a pointer to reach pointer-receiver methods.
func ForValue(target any) *ValueHandler {
	return &ValueHandler{target: reflect.ValueOf(target)}
}

// Target returns the wrapped value.
func (h *ValueHandler) Target() any {
	if !h.target.IsValid() {
		return nil
	}
	return h.target.Interface()
}

// Invoke implements InvocationHandler.
func (h *ValueHandler) Invoke(receiver any, m *iface.Method, args []any) (any, error) {
	if !h.target.IsValid() {
		return nil, fmt.Errorf("%w: value handler has no target", ErrNilFunc)
	}

	fn := h.target.MethodByName(m.Name)
	if !fn.IsValid() {
		return nil, fmt.Errorf("%w: %s has no method %s", ErrUnknownMethod, h.target.Type(), m.Name)
	}

	in, err := convertArgs(fn.Type(), args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m, err)
	}

	return FromResults(fn.Call(in))
}

// convertArgs converts args to the parameter types of fnType.
func convertArgs(fnType reflect.Type, args []any) ([]reflect.Value, error) {
	numIn := fnType.NumIn()
	variadic := fnType.IsVariadic()

	if (!variadic && len(args) != numIn) || (variadic && len(args) < numIn-1) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrArgumentCount, len(args), numIn)
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var want reflect.Type
		if variadic && i >= numIn-1 {
			want = fnType.In(numIn - 1).Elem()
		} else {
			want = fnType.In(i)
		}

		v, err := convertArg(arg, want)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = v
	}
	return in, nil
}

func convertArg(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: nil is not assignable to %s", ErrArgumentType, want)
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(want) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(want.Kind()) {
		return convertNumber(v, want)
	}
	if v.Kind() == reflect.String && want.Kind() == reflect.String {
		return v.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s is not assignable to %s", ErrArgumentType, v.Type(), want)
}

// convertNumber converts between numeric kinds only when the value is
// represented exactly in the target's range. Fractions never become integers.
func convertNumber(v reflect.Value, want reflect.Type) (reflect.Value, error) {
	out := reflect.New(want).Elem()
	reject := func() (reflect.Value, error) {
		return reflect.Value{}, fmt.Errorf("%w: %v does not fit %s", ErrArgumentType, v.Interface(), want)
	}

	switch want.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		switch {
		case isInt(v.Kind()):
			n = v.Int()
		case isUint(v.Kind()):
			if v.Uint() > math.MaxInt64 {
				return reject()
			}
			n = int64(v.Uint())
		default:
			f := v.Float()
			if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
				return reject()
			}
			n = int64(f)
		}
		if out.OverflowInt(n) {
			return reject()
		}
		out.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var u uint64
		switch {
		case isInt(v.Kind()):
			if v.Int() < 0 {
				return reject()
			}
			u = uint64(v.Int())
		case isUint(v.Kind()):
			u = v.Uint()
		default:
			f := v.Float()
			if f != math.Trunc(f) || f < 0 || f >= 1<<64 {
				return reject()
			}
			u = uint64(f)
		}
		if out.OverflowUint(u) {
			return reject()
		}
		out.SetUint(u)

	default:
		var f float64
		switch {
		case isInt(v.Kind()):
			f = float64(v.Int())
		case isUint(v.Kind()):
			f = float64(v.Uint())
		default:
			f = v.Float()
		}
		if out.OverflowFloat(f) {
			return reject()
		}
		out.SetFloat(f)
	}
	return out, nil
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUint(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// FromResults maps reflected method results to a single value and an error.
func FromResults(out []reflect.Value) (any, error) {
	var err error
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if e := out[n-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:n-1]
	}

	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		values := make([]any, len(out))
		for i, v := range out {
			values[i] = v.Interface()
		}
		return values, err
	}
}
