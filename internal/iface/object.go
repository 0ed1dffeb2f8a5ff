package iface

// Names of the identity-defining methods declared by Object.
const (
	MethodEquals   = "Equals"
	MethodHashCode = "HashCode"
	MethodString   = "String"
)

// Object is the implicit root every contract shares. It declares the
// identity-defining methods. It is not part of any interface's closure
// unless an interface extends it explicitly.
var Object = newObject()

var (
	// Equals compares the receiver with one other value.
	Equals = mustMethod(MethodEquals)

	// HashCode returns the receiver's identity hash.
	HashCode = mustMethod(MethodHashCode)

	// ToString renders the receiver.
	ToString = mustMethod(MethodString)
)

func newObject() *Interface {
	o := New("Object")
	o.Declare(MethodEquals, "other").Returning("bool")
	o.Declare(MethodHashCode).Returning("uint64")
	o.Declare(MethodString).Returning("string")
	return o
}

func mustMethod(name string) *Method {
	m, ok := Object.Method(name)
	if !ok {
		panic("iface: Object does not declare " + name)
	}
	return m
}

// IsIdentityMethod reports whether name is one of Object's methods.
func IsIdentityMethod(name string) bool {
	_, ok := Object.Method(name)
	return ok
}
