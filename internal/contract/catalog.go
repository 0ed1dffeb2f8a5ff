package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/composite/internal/iface"
)

// Type is a resolved composed type.
type Type struct {
	// Name is the type's name.
	Name string
	// Implements lists the implemented interfaces in declaration order.
	// Earlier entries win when two interfaces declare the same method name.
	Implements []*iface.Interface
}

// Catalog holds resolved interfaces and types. Names a catalog does not
// define are looked up in its parent. The root of every chain also knows
// iface.Object by name.
//
// A Catalog is not safe for concurrent Define.
type Catalog struct {
	parent     *Catalog
	interfaces map[string]*iface.Interface
	types      map[string]*Type
}

// NewCatalog creates an empty catalog that delegates to parent, which may be nil.
func NewCatalog(parent *Catalog) *Catalog {
	return &Catalog{
		parent:     parent,
		interfaces: make(map[string]*iface.Interface),
		types:      make(map[string]*Type),
	}
}

// Parent returns the parent catalog, or nil.
func (c *Catalog) Parent() *Catalog {
	return c.parent
}

// Interface returns the interface with the given name from c or its ancestors.
func (c *Catalog) Interface(name string) (*iface.Interface, bool) {
	for cat := c; cat != nil; cat = cat.parent {
		if i, ok := cat.interfaces[name]; ok {
			return i, true
		}
	}
	if name == iface.Object.Name() {
		return iface.Object, true
	}
	return nil, false
}

// Type returns the composed type with the given name from c or its ancestors.
func (c *Catalog) Type(name string) (*Type, bool) {
	for cat := c; cat != nil; cat = cat.parent {
		if t, ok := cat.types[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Names returns the interfaces defined directly in c, sorted.
func (c *Catalog) Names() []string {
	return sortedKeys(c.interfaces)
}

// TypeNames returns the types defined directly in c, sorted.
func (c *Catalog) TypeNames() []string {
	return sortedKeys(c.types)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Define resolves doc and adds its interfaces and types to c.
//
// Interfaces are created in dependency order, so extends may refer to an
// entry later in the document or to anything visible through the parent
// chain. Either everything in doc is added or nothing is.
func (c *Catalog) Define(doc *Document) error {
	if doc == nil {
		return nil
	}

	defs := make(map[string]*InterfaceDef, len(doc.Interfaces))
	for i := range doc.Interfaces {
		def := &doc.Interfaces[i]
		if _, ok := defs[def.Name]; ok {
			return fmt.Errorf("%w: interface %s in %s", ErrDuplicateDefinition, def.Name, doc.Source)
		}
		if _, ok := c.Interface(def.Name); ok {
			return fmt.Errorf("%w: interface %s is already defined", ErrDuplicateDefinition, def.Name)
		}
		if err := checkMethods(def); err != nil {
			return err
		}
		defs[def.Name] = def
	}

	order, err := c.order(doc, defs)
	if err != nil {
		return err
	}

	created := make(map[string]*iface.Interface, len(order))
	lookup := func(name string) (*iface.Interface, bool) {
		if i, ok := created[name]; ok {
			return i, true
		}
		return c.Interface(name)
	}

	for _, def := range order {
		extends := make([]*iface.Interface, 0, len(def.Extends))
		for _, name := range def.Extends {
			parent, _ := lookup(name)
			extends = append(extends, parent)
		}
		it := iface.New(def.Name, extends...)
		for _, m := range def.Methods {
			it.Declare(m.Name, m.Params...).Returning(m.Results...)
		}
		created[def.Name] = it
	}

	types := make(map[string]*Type, len(doc.Types))
	for _, def := range doc.Types {
		if _, ok := types[def.Name]; ok {
			return fmt.Errorf("%w: type %s in %s", ErrDuplicateDefinition, def.Name, doc.Source)
		}
		if _, ok := c.Type(def.Name); ok {
			return fmt.Errorf("%w: type %s is already defined", ErrDuplicateDefinition, def.Name)
		}
		t := &Type{Name: def.Name}
		for _, name := range def.Implements {
			it, ok := lookup(name)
			if !ok {
				return fmt.Errorf("%w: %s (implemented by type %s)", ErrUnknownInterface, name, def.Name)
			}
			t.Implements = append(t.Implements, it)
		}
		types[def.Name] = t
	}

	for name, it := range created {
		c.interfaces[name] = it
	}
	for name, t := range types {
		c.types[name] = t
	}
	return nil
}

func checkMethods(def *InterfaceDef) error {
	seen := make(map[string]bool, len(def.Methods))
	for _, m := range def.Methods {
		if seen[m.Name] {
			return fmt.Errorf("%w: method %s.%s", ErrDuplicateDefinition, def.Name, m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// order sorts the document's interfaces so every interface follows the
// interfaces it extends. Document order is kept otherwise.
func (c *Catalog) order(doc *Document, defs map[string]*InterfaceDef) ([]*InterfaceDef, error) {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(defs))
	order := make([]*InterfaceDef, 0, len(defs))
	var path []string

	var visit func(def *InterfaceDef) error
	visit = func(def *InterfaceDef) error {
		switch state[def.Name] {
		case done:
			return nil
		case visiting:
			start := 0
			for i, name := range path {
				if name == def.Name {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), def.Name)
			return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " -> "))
		}

		state[def.Name] = visiting
		path = append(path, def.Name)
		for _, name := range def.Extends {
			if parent, ok := defs[name]; ok {
				if err := visit(parent); err != nil {
					return err
				}
				continue
			}
			if _, ok := c.Interface(name); !ok {
				return fmt.Errorf("%w: %s (extended by %s)", ErrUnknownInterface, name, def.Name)
			}
		}
		path = path[:len(path)-1]
		state[def.Name] = done
		order = append(order, def)
		return nil
	}

	for i := range doc.Interfaces {
		if err := visit(defs[doc.Interfaces[i].Name]); err != nil {
			return nil, err
		}
	}
	return order, nil
}
