// Package iface describes interface contracts as runtime values.
//
// An Interface has a name, the interfaces it directly extends, and the
// methods it declares itself. Interfaces are compared by pointer identity
// and serve as dispatch keys.
package iface

import (
	"fmt"
	"strings"
)

// Interface describes a named contract.
type Interface struct {
	name    string
	extends []*Interface
	methods []*Method
	byName  map[string]*Method
}

// Method describes a method declared by an Interface.
type Method struct {
	// Name is the method name.
	Name string

	// Params names the parameters, in order.
	Params []string

	// Results names the results, in order.
	Results []string

	iface *Interface
}

// New creates an interface that extends the given interfaces.
// Nil entries in extends are ignored.
func New(name string, extends ...*Interface) *Interface {
	i := &Interface{
		name:   name,
		byName: make(map[string]*Method),
	}
	for _, e := range extends {
		if e != nil {
			i.extends = append(i.extends, e)
		}
	}
	return i
}

// Declare adds a method to the interface and returns it.
// Declaring an existing name replaces the earlier declaration.
func (i *Interface) Declare(name string, params ...string) *Method {
	m := &Method{Name: name, Params: params, iface: i}
	if old, ok := i.byName[name]; ok {
		for idx, existing := range i.methods {
			if existing == old {
				i.methods[idx] = m
				break
			}
		}
	} else {
		i.methods = append(i.methods, m)
	}
	i.byName[name] = m
	return m
}

// Returning sets the result names and returns the method.
func (m *Method) Returning(results ...string) *Method {
	m.Results = results
	return m
}

// Name returns the interface name.
func (i *Interface) Name() string {
	return i.name
}

// Extends returns the directly extended interfaces.
func (i *Interface) Extends() []*Interface {
	out := make([]*Interface, len(i.extends))
	copy(out, i.extends)
	return out
}

// Methods returns the methods declared by this interface, excluding inherited ones.
func (i *Interface) Methods() []*Method {
	out := make([]*Method, len(i.methods))
	copy(out, i.methods)
	return out
}

// Method returns the method this interface itself declares under name.
func (i *Interface) Method(name string) (*Method, bool) {
	m, ok := i.byName[name]
	return m, ok
}

// Find returns the method named name from this interface's hierarchy,
// preferring the declaration closest to i in walk order.
func (i *Interface) Find(name string) (*Method, bool) {
	var found *Method
	Walk(i, func(cur *Interface) {
		if found != nil {
			return
		}
		if m, ok := cur.byName[name]; ok {
			found = m
		}
	})
	return found, found != nil
}

// String returns the interface name.
func (i *Interface) String() string {
	if i == nil {
		return "<nil>"
	}
	return i.name
}

// Interface returns the interface that declared the method.
func (m *Method) Interface() *Interface {
	return m.iface
}

// Arity returns the number of parameters.
func (m *Method) Arity() int {
	return len(m.Params)
}

// String renders the method as Iface.Name(p1, p2).
func (m *Method) String() string {
	if m == nil {
		return "<nil>"
	}
	var sb strings.Builder
	if m.iface != nil {
		sb.WriteString(m.iface.name)
		sb.WriteByte('.')
	}
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	sb.WriteString(strings.Join(m.Params, ", "))
	sb.WriteByte(')')
	switch len(m.Results) {
	case 0:
	case 1:
		fmt.Fprintf(&sb, " %s", m.Results[0])
	default:
		fmt.Fprintf(&sb, " (%s)", strings.Join(m.Results, ", "))
	}
	return sb.String()
}
