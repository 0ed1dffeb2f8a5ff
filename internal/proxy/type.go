package proxy

import (
	"sort"

	"github.com/dshills/composite/internal/contract"
	"github.com/dshills/composite/internal/iface"
)

// Type is a proxy type: an ordered list of implemented interfaces and the
// method table derived from them.
type Type struct {
	name       string
	interfaces []*iface.Interface
	methods    map[string]*iface.Method
	catalog    *contract.Catalog
	domain     Domain
}

// NewType builds a proxy type implementing the given interfaces.
//
// Each method name maps to the first interface, in implementation order and
// then closure order, that declares it. Equals, HashCode and String always
// map to iface.Object.
func NewType(name string, interfaces ...*iface.Interface) *Type {
	t := &Type{
		name:    name,
		methods: make(map[string]*iface.Method),
	}

	for _, root := range interfaces {
		if root == nil {
			continue
		}
		t.interfaces = append(t.interfaces, root)
		iface.Walk(root, func(i *iface.Interface) {
			for _, m := range i.Methods() {
				if iface.IsIdentityMethod(m.Name) {
					continue
				}
				if _, ok := t.methods[m.Name]; !ok {
					t.methods[m.Name] = m
				}
			}
		})
	}

	for _, m := range iface.Object.Methods() {
		t.methods[m.Name] = m
	}
	return t
}

// Name returns the type name.
func (t *Type) Name() string {
	return t.name
}

// Interfaces returns the implemented interfaces in order.
func (t *Type) Interfaces() []*iface.Interface {
	out := make([]*iface.Interface, len(t.interfaces))
	copy(out, t.interfaces)
	return out
}

// Catalog returns the catalog the type was defined in, or nil for types
// built directly with NewType.
func (t *Type) Catalog() *contract.Catalog {
	return t.catalog
}

// Domain returns the domain passed to DefineType.
func (t *Type) Domain() Domain {
	return t.domain
}

// Resolve returns the method, carrying its declaring interface, that a call
// to name dispatches.
func (t *Type) Resolve(name string) (*iface.Method, bool) {
	m, ok := t.methods[name]
	return m, ok
}

// Methods returns the method table sorted by name.
func (t *Type) Methods() []*iface.Method {
	out := make([]*iface.Method, 0, len(t.methods))
	for _, m := range t.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Implements reports whether the type implements i, directly or through
// inheritance.
func (t *Type) Implements(i *iface.Interface) bool {
	if i == iface.Object {
		return true
	}
	for _, root := range t.interfaces {
		if root.IsA(i) {
			return true
		}
	}
	return false
}

// New creates an instance that forwards calls to inv.
func (t *Type) New(inv Invoker) *Instance {
	return &Instance{typ: t, inv: inv}
}
