// Package composition assembles a dispatcher and a proxy type from a
// composition file that binds contract interfaces to Lua scripts.
//
// A composition file looks like:
//
//	contract = "contract.toml"
//	type     = "File"
//	timeout  = "2s"
//
//	[[bindings]]
//	interface = "ReadWriter"
//	script    = "rw.lua"
//
//	[default]
//	script = "fallback.lua"
//
// Paths are relative to the composition file. YAML files with the same
// keys are accepted.
package composition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/dshills/composite/internal/contract"
	"github.com/dshills/composite/internal/luahandler"
)

// Binding binds an interface, and everything it extends, to a script.
type Binding struct {
	Interface string `toml:"interface" yaml:"interface"`
	Script    string `toml:"script" yaml:"script"`
}

// ScriptRef names a script.
type ScriptRef struct {
	Script string `toml:"script" yaml:"script"`
}

// File is a parsed composition file.
type File struct {
	// Path is the absolute path of the composition file.
	Path string `toml:"-" yaml:"-"`

	Contract     string     `toml:"contract" yaml:"contract"`
	Type         string     `toml:"type" yaml:"type"`
	Timeout      string     `toml:"timeout" yaml:"timeout"`
	Capabilities []string   `toml:"capabilities" yaml:"capabilities"`
	Bindings     []Binding  `toml:"bindings" yaml:"bindings"`
	Default      *ScriptRef `toml:"default" yaml:"default"`

	timeout time.Duration
}

// Load reads and validates the composition file at path.
func Load(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading composition %s: %w", path, err)
	}

	f := &File{}
	switch contract.FormatFromPath(abs) {
	case contract.FormatYAML:
		if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(f); err != nil && !errors.Is(err, io.EOF) {
			return nil, &contract.ParseError{Source: abs, Message: err.Error(), Err: err}
		}
	default:
		if err := toml.Unmarshal(data, f); err != nil {
			perr := &contract.ParseError{Source: abs, Message: err.Error(), Err: err}
			var de *toml.DecodeError
			if errors.As(err, &de) {
				perr.Line, perr.Column = de.Position()
			}
			return nil, perr
		}
	}
	f.Path = abs

	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) validate() error {
	if f.Contract == "" {
		return fmt.Errorf("%w: %s", ErrNoContract, f.Path)
	}
	if f.Type == "" {
		return fmt.Errorf("%w: %s", ErrNoType, f.Path)
	}

	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return &contract.ParseError{Source: f.Path, Message: fmt.Sprintf("invalid timeout %q", f.Timeout), Err: err}
		}
		f.timeout = d
	}

	for _, c := range f.Capabilities {
		switch luahandler.Capability(c) {
		case luahandler.CapabilityOS, luahandler.CapabilityIO:
		default:
			return &contract.ParseError{Source: f.Path, Message: fmt.Sprintf("unknown capability %q", c)}
		}
	}

	for i, b := range f.Bindings {
		if b.Interface == "" || b.Script == "" {
			return &BindingError{Index: i, Interface: b.Interface, Script: b.Script, Err: errors.New("interface and script are required")}
		}
	}
	if f.Default != nil && f.Default.Script == "" {
		return &BindingError{Index: -1, Err: errors.New("script is required")}
	}
	return nil
}

// resolve makes p absolute relative to the composition file's directory.
func (f *File) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(filepath.Dir(f.Path), p)
}

// ContractPath returns the absolute contract path.
func (f *File) ContractPath() string {
	return f.resolve(f.Contract)
}

// ScriptPath returns the absolute path of a script named in the file.
func (f *File) ScriptPath(script string) string {
	return f.resolve(script)
}

// ExecutionTimeout returns the parsed timeout, or zero when unset.
func (f *File) ExecutionTimeout() time.Duration {
	return f.timeout
}

// Paths returns the composition file, the contract and every script, as
// absolute paths without duplicates.
func (f *File) Paths() []string {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	add(f.Path)
	add(f.ContractPath())
	for _, b := range f.Bindings {
		add(f.ScriptPath(b.Script))
	}
	if f.Default != nil {
		add(f.ScriptPath(f.Default.Script))
	}
	return paths
}
