package contract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dshills/composite/internal/iface"
)

const fileContract = `
[[interfaces]]
name = "ReadWriter"
extends = ["Reader", "Writer"]

[[interfaces]]
name = "Reader"
  [[interfaces.methods]]
  name = "Read"
  params = ["n"]
  results = ["data"]

[[interfaces]]
name = "Writer"
  [[interfaces.methods]]
  name = "Write"
  params = ["data"]
  results = ["n", "err"]

[[types]]
name = "File"
implements = ["ReadWriter"]
`

const fileContractYAML = `
interfaces:
  - name: ReadWriter
    extends: [Reader, Writer]
  - name: Reader
    methods:
      - name: Read
        params: [n]
        results: [data]
  - name: Writer
    methods:
      - name: Write
        params: [data]
        results: [n, err]
types:
  - name: File
    implements: [ReadWriter]
`

func closureNames(i *iface.Interface) []string {
	var out []string
	for _, it := range iface.Closure(i) {
		out = append(out, it.Name())
	}
	return out
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"toml", fileContract, FormatTOML},
		{"default format", fileContract, ""},
		{"yaml", fileContractYAML, FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			want := &Document{
				Source: "<contract>",
				Interfaces: []InterfaceDef{
					{Name: "ReadWriter", Extends: []string{"Reader", "Writer"}},
					{Name: "Reader", Methods: []MethodDef{{Name: "Read", Params: []string{"n"}, Results: []string{"data"}}}},
					{Name: "Writer", Methods: []MethodDef{{Name: "Write", Params: []string{"data"}, Results: []string{"n", "err"}}}},
				},
				Types: []TypeDef{{Name: "File", Implements: []string{"ReadWriter"}}},
			}
			if diff := cmp.Diff(want, doc); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := ParseSource("broken.toml", []byte("[[interfaces]\nname = \"A\""), FormatTOML)

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if perr.Source != "broken.toml" {
		t.Errorf("Source = %q, want broken.toml", perr.Source)
	}
	if perr.Line != 1 {
		t.Errorf("Line = %d, want 1", perr.Line)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("interfaces: [unclosed"), FormatYAML)

	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestParseMissingNames(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"interface", "[[interfaces]]\nextends = [\"A\"]"},
		{"method", "[[interfaces]]\nname = \"A\"\n[[interfaces.methods]]\nparams = [\"x\"]"},
		{"type", "[[types]]\nimplements = [\"A\"]"},
		{"empty implements", "[[types]]\nname = \"T\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), FormatTOML)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("Parse() error = %v, want *ParseError", err)
			}
		})
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	if _, err := Parse([]byte("{}"), "json"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Parse() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contract.yml")
	if err := os.WriteFile(path, []byte(fileContractYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if doc.Source != path {
		t.Errorf("Source = %q, want %q", doc.Source, path)
	}
	if len(doc.Interfaces) != 3 {
		t.Errorf("got %d interfaces, want 3", len(doc.Interfaces))
	}

	if _, err := ParseFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("ParseFile() on a missing file should fail")
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{
		"a.toml":   FormatTOML,
		"a.yaml":   FormatYAML,
		"A.YML":    FormatYAML,
		"contract": FormatTOML,
	}
	for path, want := range tests {
		if got := FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestDefineResolvesForwardReferences(t *testing.T) {
	doc, err := Parse([]byte(fileContract), FormatTOML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	c := NewCatalog(nil)
	if err := c.Define(doc); err != nil {
		t.Fatalf("Define() error = %v", err)
	}

	if diff := cmp.Diff([]string{"ReadWriter", "Reader", "Writer"}, c.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	rw, ok := c.Interface("ReadWriter")
	if !ok {
		t.Fatal("ReadWriter not defined")
	}
	if diff := cmp.Diff([]string{"ReadWriter", "Reader", "Writer"}, closureNames(rw)); diff != "" {
		t.Errorf("closure mismatch (-want +got):\n%s", diff)
	}

	reader, _ := c.Interface("Reader")
	if rw.Extends()[0] != reader {
		t.Error("ReadWriter should extend the catalog's Reader descriptor")
	}

	write, ok := rw.Find("Write")
	if !ok {
		t.Fatal("Write not found through ReadWriter")
	}
	if write.String() != "Writer.Write(data) (n, err)" {
		t.Errorf("Write = %s", write)
	}

	file, ok := c.Type("File")
	if !ok {
		t.Fatal("File not defined")
	}
	if len(file.Implements) != 1 || file.Implements[0] != rw {
		t.Errorf("File implements %v", file.Implements)
	}
	if diff := cmp.Diff([]string{"File"}, c.TypeNames()); diff != "" {
		t.Errorf("TypeNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefineParentDelegation(t *testing.T) {
	root := NewCatalog(nil)
	base, _ := Parse([]byte(`
[[interfaces]]
name = "Closer"
  [[interfaces.methods]]
  name = "Close"
`), FormatTOML)
	if err := root.Define(base); err != nil {
		t.Fatalf("Define(root) error = %v", err)
	}

	child := NewCatalog(root)
	doc, _ := Parse([]byte(`
[[interfaces]]
name = "Stream"
extends = ["Closer", "Object"]

[[types]]
name = "Pipe"
implements = ["Stream", "Closer"]
`), FormatTOML)
	if err := child.Define(doc); err != nil {
		t.Fatalf("Define(child) error = %v", err)
	}

	if child.Parent() != root {
		t.Error("Parent() should return root")
	}

	closer, _ := root.Interface("Closer")
	fromChild, ok := child.Interface("Closer")
	if !ok || fromChild != closer {
		t.Error("child should resolve Closer through its parent")
	}
	if _, ok := root.Interface("Stream"); ok {
		t.Error("parent must not see child definitions")
	}

	stream, _ := child.Interface("Stream")
	if !stream.IsA(iface.Object) {
		t.Error("Stream should extend iface.Object")
	}
	if diff := cmp.Diff([]string{"Stream"}, child.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	pipe, _ := child.Type("Pipe")
	if len(pipe.Implements) != 2 || pipe.Implements[1] != closer {
		t.Errorf("Pipe implements %v", pipe.Implements)
	}
}

func TestDefineErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{
			name: "unknown extends",
			data: "[[interfaces]]\nname = \"A\"\nextends = [\"Missing\"]",
			want: ErrUnknownInterface,
		},
		{
			name: "unknown implements",
			data: "[[types]]\nname = \"T\"\nimplements = [\"Missing\"]",
			want: ErrUnknownInterface,
		},
		{
			name: "duplicate interface",
			data: "[[interfaces]]\nname = \"A\"\n[[interfaces]]\nname = \"A\"",
			want: ErrDuplicateDefinition,
		},
		{
			name: "redefine object",
			data: "[[interfaces]]\nname = \"Object\"",
			want: ErrDuplicateDefinition,
		},
		{
			name: "duplicate method",
			data: "[[interfaces]]\nname = \"A\"\n[[interfaces.methods]]\nname = \"M\"\n[[interfaces.methods]]\nname = \"M\"",
			want: ErrDuplicateDefinition,
		},
		{
			name: "duplicate type",
			data: "[[interfaces]]\nname = \"A\"\n[[types]]\nname = \"T\"\nimplements = [\"A\"]\n[[types]]\nname = \"T\"\nimplements = [\"A\"]",
			want: ErrDuplicateDefinition,
		},
		{
			name: "self cycle",
			data: "[[interfaces]]\nname = \"A\"\nextends = [\"A\"]",
			want: ErrCycle,
		},
		{
			name: "three cycle",
			data: "[[interfaces]]\nname = \"A\"\nextends = [\"B\"]\n[[interfaces]]\nname = \"B\"\nextends = [\"C\"]\n[[interfaces]]\nname = \"C\"\nextends = [\"A\"]",
			want: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.data), FormatTOML)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			c := NewCatalog(nil)
			err = c.Define(doc)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Define() error = %v, want %v", err, tt.want)
			}
			if len(c.Names()) != 0 || len(c.TypeNames()) != 0 {
				t.Error("failed Define must not add anything")
			}
		})
	}
}

func TestDefineCycleMessage(t *testing.T) {
	doc, _ := Parse([]byte("[[interfaces]]\nname = \"A\"\nextends = [\"B\"]\n[[interfaces]]\nname = \"B\"\nextends = [\"A\"]"), FormatTOML)

	err := NewCatalog(nil).Define(doc)
	if err == nil || err.Error() != "interface cycle: A -> B -> A" {
		t.Errorf("Define() error = %v", err)
	}
}

func TestDefineRejectsRedefinitionAcrossCatalogs(t *testing.T) {
	root := NewCatalog(nil)
	doc, _ := Parse([]byte("[[interfaces]]\nname = \"A\""), FormatTOML)
	if err := root.Define(doc); err != nil {
		t.Fatalf("Define() error = %v", err)
	}

	if err := NewCatalog(root).Define(doc); !errors.Is(err, ErrDuplicateDefinition) {
		t.Errorf("child Define() error = %v, want ErrDuplicateDefinition", err)
	}
	if err := root.Define(doc); !errors.Is(err, ErrDuplicateDefinition) {
		t.Errorf("second Define() error = %v, want ErrDuplicateDefinition", err)
	}
}

func TestDefineNil(t *testing.T) {
	if err := NewCatalog(nil).Define(nil); err != nil {
		t.Errorf("Define(nil) error = %v", err)
	}
}
