package proxy_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/composite/internal/contract"
	"github.com/dshills/composite/internal/dispatcher"
	"github.com/dshills/composite/internal/dispatcher/handler"
	"github.com/dshills/composite/internal/iface"
	"github.com/dshills/composite/internal/proxy"
)

const streams = `
[[interfaces]]
name = "Reader"
  [[interfaces.methods]]
  name = "Read"
  params = ["n"]
  results = ["data", "err"]

[[interfaces]]
name = "Writer"
  [[interfaces.methods]]
  name = "Write"
  params = ["data"]
  results = ["n", "err"]

[[interfaces]]
name = "ReadWriter"
extends = ["Reader", "Writer"]

[[interfaces]]
name = "Named"
  [[interfaces.methods]]
  name = "String"
  results = ["s"]
  [[interfaces.methods]]
  name = "Name"
  results = ["s"]

[[interfaces]]
name = "Labeled"
  [[interfaces.methods]]
  name = "Name"
  results = ["s"]

[[types]]
name = "File"
implements = ["ReadWriter", "Named", "Labeled"]
`

func defineFile(t *testing.T) *proxy.Type {
	t.Helper()
	typ, err := (&proxy.Provider{}).DefineType("File", []byte(streams), nil, proxy.Domain{CodeSource: "streams.toml"})
	if err != nil {
		t.Fatalf("DefineType() error = %v", err)
	}
	return typ
}

func declaringInterface(t *testing.T, typ *proxy.Type, method string) string {
	t.Helper()
	m, ok := typ.Resolve(method)
	if !ok {
		t.Fatalf("Resolve(%q) failed", method)
	}
	return m.Interface().Name()
}

func TestDefineTypeMethodTable(t *testing.T) {
	typ := defineFile(t)

	if typ.Name() != "File" {
		t.Errorf("Name() = %q, want File", typ.Name())
	}
	if typ.Domain().CodeSource != "streams.toml" {
		t.Errorf("Domain() = %+v", typ.Domain())
	}

	tests := map[string]string{
		"Read":     "Reader",
		"Write":    "Writer",
		"Name":     "Named",
		"String":   "Object",
		"Equals":   "Object",
		"HashCode": "Object",
	}
	for method, want := range tests {
		if got := declaringInterface(t, typ, method); got != want {
			t.Errorf("%s declared by %s, want %s", method, got, want)
		}
	}

	var names []string
	for _, m := range typ.Methods() {
		names = append(names, m.Name)
	}
	want := []string{"Equals", "HashCode", "Name", "Read", "String", "Write"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("Methods() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefineTypeInterfaceName(t *testing.T) {
	typ, err := (&proxy.Provider{}).DefineType("ReadWriter", []byte(streams), nil, proxy.Domain{})
	if err != nil {
		t.Fatalf("DefineType() error = %v", err)
	}

	if len(typ.Interfaces()) != 1 || typ.Interfaces()[0].Name() != "ReadWriter" {
		t.Errorf("Interfaces() = %v", typ.Interfaces())
	}
	if _, ok := typ.Resolve("Name"); ok {
		t.Error("ReadWriter proxy should not have Name")
	}
	reader, _ := typ.Catalog().Interface("Reader")
	if !typ.Implements(reader) || !typ.Implements(iface.Object) {
		t.Error("ReadWriter proxy should implement Reader and Object")
	}
}

func TestDefineTypeUsesLoader(t *testing.T) {
	loader := contract.NewCatalog(nil)
	base, _ := contract.Parse([]byte(streams), contract.FormatTOML)
	if err := loader.Define(base); err != nil {
		t.Fatalf("Define() error = %v", err)
	}

	yamlDef := []byte(`
interfaces:
  - name: Closer
    methods:
      - name: Close
types:
  - name: Pipe
    implements: [ReadWriter, Closer]
`)
	typ, err := (&proxy.Provider{}).DefineType("Pipe", yamlDef, loader, proxy.Domain{CodeSource: "pipe.yaml"})
	if err != nil {
		t.Fatalf("DefineType() error = %v", err)
	}

	rw, _ := loader.Interface("ReadWriter")
	if typ.Interfaces()[0] != rw {
		t.Error("Pipe should implement the loader's ReadWriter")
	}
	if typ.Catalog().Parent() != loader {
		t.Error("type catalog should delegate to the loader")
	}
	if got := declaringInterface(t, typ, "Close"); got != "Closer" {
		t.Errorf("Close declared by %s", got)
	}
}

func TestDefineTypeErrors(t *testing.T) {
	p := &proxy.Provider{}

	if _, err := p.DefineType("Socket", []byte(streams), nil, proxy.Domain{}); !errors.Is(err, proxy.ErrUnknownType) {
		t.Errorf("unknown name error = %v, want ErrUnknownType", err)
	}

	_, err := p.DefineType("File", []byte("[[interfaces]\n"), nil, proxy.Domain{CodeSource: "bad.toml"})
	var perr *contract.ParseError
	if !errors.As(err, &perr) || perr.Source != "bad.toml" {
		t.Errorf("parse error = %v, want *contract.ParseError from bad.toml", err)
	}

	_, err = p.DefineType("A", []byte("[[interfaces]]\nname = \"A\"\nextends = [\"B\"]"), nil, proxy.Domain{})
	if !errors.Is(err, contract.ErrUnknownInterface) {
		t.Errorf("resolve error = %v, want ErrUnknownInterface", err)
	}

	yamlAsTOML := &proxy.Provider{Format: contract.FormatYAML}
	if _, err := yamlAsTOML.DefineType("File", []byte(streams), nil, proxy.Domain{}); err == nil {
		t.Error("TOML parsed as YAML should fail")
	}
}

func TestFirstInterfaceWins(t *testing.T) {
	a := iface.New("A")
	ma := a.Declare("Run")
	b := iface.New("B")
	b.Declare("Run")

	if m, _ := proxy.NewType("AB", a, b).Resolve("Run"); m != ma {
		t.Errorf("Run resolved to %v, want A.Run", m)
	}
	if m, _ := proxy.NewType("BA", b, a).Resolve("Run"); m == ma {
		t.Error("with B first, Run should resolve to B.Run")
	}
}

func TestInheritedMethodResolvesToAncestor(t *testing.T) {
	base := iface.New("Base")
	ping := base.Declare("Ping")
	mid := iface.New("Mid", base)
	top := iface.New("Top", mid)

	m, ok := proxy.NewType("T", top).Resolve("Ping")
	if !ok || m != ping {
		t.Errorf("Ping resolved to %v, want Base.Ping", m)
	}
}

func TestInstanceCallTagsDeclaringInterface(t *testing.T) {
	typ := defineFile(t)
	d := dispatcher.NewWithDefaults()

	var got []string
	record := handler.NewHandlerFunc(func(receiver any, m *iface.Method, args []any) (any, error) {
		got = append(got, fmt.Sprintf("%s%v", m.Interface().Name(), args))
		return nil, nil
	})
	rw, _ := typ.Catalog().Interface("ReadWriter")
	named, _ := typ.Catalog().Interface("Named")
	_ = d.AddInvocationHandler(rw, record)
	_ = d.AddInvocationHandler(named, record)

	inst := typ.New(d)
	_, _ = inst.Call("Read", 4)
	_, _ = inst.Call("Write", "x")
	_, _ = inst.Call("Name")

	want := []string{"Reader[4]", "Writer[x]", "Named[]"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestInstanceReceiverIsProxy(t *testing.T) {
	typ := defineFile(t)
	d := dispatcher.NewWithDefaults()

	var receiver any
	d.SetDefaultHandler(handler.NewHandlerFunc(func(r any, m *iface.Method, args []any) (any, error) {
		receiver = r
		return nil, nil
	}))

	inst := typ.New(d)
	_, _ = inst.Call("Read", 1)
	if receiver != inst {
		t.Errorf("receiver = %v, want the instance", receiver)
	}
}

func TestInstanceUnknownMethod(t *testing.T) {
	inst := defineFile(t).New(dispatcher.NewWithDefaults())

	if _, err := inst.Call("Seek", 0); !errors.Is(err, proxy.ErrNoSuchMethod) {
		t.Errorf("Call(Seek) error = %v, want ErrNoSuchMethod", err)
	}
}

func TestInstanceWithoutInvoker(t *testing.T) {
	inst := defineFile(t).New(nil)

	if _, err := inst.Call("Read", 1); !errors.Is(err, proxy.ErrNoInvoker) {
		t.Errorf("Call() error = %v, want ErrNoInvoker", err)
	}
	if inst.Dispatcher() != nil {
		t.Error("Dispatcher() should be nil without an invoker")
	}
	if !strings.HasPrefix(inst.String(), "File(!") {
		t.Errorf("String() = %q", inst.String())
	}
}

func TestInstanceIdentity(t *testing.T) {
	typ := defineFile(t)
	d := dispatcher.NewWithDefaults()
	s := dispatcher.NewSynchronized(d)

	spy := handler.NewHandlerFunc(func(any, *iface.Method, []any) (any, error) {
		t.Error("identity call reached a handler")
		return nil, nil
	})
	named, _ := typ.Catalog().Interface("Named")
	_ = d.AddInvocationHandler(named, spy)
	d.SetDefaultHandler(spy)

	a := typ.New(d)
	b := typ.New(s)
	other := typ.New(dispatcher.NewWithDefaults())

	if !a.Equal(b) {
		t.Error("proxies over the same dispatcher should be equal")
	}
	if !b.Equal(a) {
		t.Error("equality should hold through Synchronized")
	}
	if a.Equal(other) {
		t.Error("proxies over different dispatchers should differ")
	}
	if a.HashCode() != d.HashCode() || b.HashCode() != a.HashCode() {
		t.Error("HashCode() should come from the dispatcher")
	}
	if a.String() != d.String() {
		t.Errorf("String() = %q, want %q", a.String(), d.String())
	}
	if fmt.Sprint(a) != d.String() {
		t.Errorf("fmt.Sprint() = %q", fmt.Sprint(a))
	}
	if b.Dispatcher() != d {
		t.Error("Dispatcher() should see through Synchronized")
	}
}

// ReadWriter is a Go interface implemented by readWriterAdapter.
type ReadWriter interface {
	Read(n int) (string, error)
	Write(data string) (int, error)
}

// readWriterAdapter is the compile-time form of a proxy: a hand-written
// implementation that forwards through an Instance.
type readWriterAdapter struct {
	*proxy.Instance
}

var _ ReadWriter = readWriterAdapter{}

func (a readWriterAdapter) Read(n int) (string, error) {
	res, err := a.Call("Read", n)
	if err != nil {
		return "", err
	}
	s, _ := res.(string)
	return s, nil
}

func (a readWriterAdapter) Write(data string) (int, error) {
	res, err := a.Call("Write", data)
	if err != nil {
		return 0, err
	}
	n, _ := res.(int)
	return n, nil
}

type memory struct {
	data strings.Builder
}

func (m *memory) Write(data string) int {
	n, _ := m.data.WriteString(data)
	return n
}

func (m *memory) Read(n int) string {
	s := m.data.String()
	if n < len(s) {
		s = s[:n]
	}
	return s
}

func TestAdapterSplitsAcrossHandlers(t *testing.T) {
	typ := defineFile(t)
	d := dispatcher.NewWithDefaults()
	mem := &memory{}

	reader, _ := typ.Catalog().Interface("Reader")
	writer, _ := typ.Catalog().Interface("Writer")
	_ = d.AddInvocationHandler(writer, handler.ForValue(mem))
	_ = d.AddInvocationHandler(reader, handler.NewTable("upper").
		Register("Read", func(receiver any, args []any) (any, error) {
			return strings.ToUpper(mem.Read(args[0].(int))), nil
		}))

	var rw ReadWriter = readWriterAdapter{typ.New(d)}

	n, err := rw.Write("hello")
	if err != nil || n != 5 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	s, err := rw.Read(3)
	if err != nil || s != "HEL" {
		t.Errorf("Read() = %q, %v; want HEL", s, err)
	}
}

func TestAdapterPropagatesUnresolved(t *testing.T) {
	typ := defineFile(t)
	rw := readWriterAdapter{typ.New(dispatcher.NewWithDefaults())}

	_, err := rw.Read(1)
	var ue *dispatcher.UnresolvedHandlerError
	if !errors.As(err, &ue) || ue.Interface.Name() != "Reader" {
		t.Errorf("Read() error = %v, want unresolved Reader", err)
	}
}
