// Package contract reads interface and composed-type definitions from TOML
// or YAML documents and resolves them into iface descriptors.
package contract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a contract document encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from a file extension. Anything that is not
// .yaml or .yml is TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// MethodDef declares one method.
type MethodDef struct {
	Name    string   `toml:"name" yaml:"name"`
	Params  []string `toml:"params" yaml:"params"`
	Results []string `toml:"results" yaml:"results"`
}

// InterfaceDef declares one interface.
type InterfaceDef struct {
	Name    string      `toml:"name" yaml:"name"`
	Extends []string    `toml:"extends" yaml:"extends"`
	Methods []MethodDef `toml:"methods" yaml:"methods"`
}

// TypeDef declares a composed type and the interfaces it implements, in
// priority order.
type TypeDef struct {
	Name       string   `toml:"name" yaml:"name"`
	Implements []string `toml:"implements" yaml:"implements"`
}

// Document is a parsed, unresolved contract document.
type Document struct {
	// Source names the document in errors.
	Source     string         `toml:"-" yaml:"-"`
	Interfaces []InterfaceDef `toml:"interfaces" yaml:"interfaces"`
	Types      []TypeDef      `toml:"types" yaml:"types"`
}

// Parse decodes a contract document. An empty format means TOML.
func Parse(data []byte, format Format) (*Document, error) {
	return parse("<contract>", data, format)
}

// ParseFile reads and decodes the document at path, choosing the format
// from the extension.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading contract %s: %w", path, err)
	}
	return parse(path, data, FormatFromPath(path))
}

// ParseSource decodes data and records source as the document's name.
func ParseSource(source string, data []byte, format Format) (*Document, error) {
	return parse(source, data, format)
}

func parse(source string, data []byte, format Format) (*Document, error) {
	doc := &Document{Source: source}

	switch format {
	case "", FormatTOML:
		if err := toml.Unmarshal(data, doc); err != nil {
			perr := &ParseError{Source: source, Message: err.Error(), Err: err}
			var de *toml.DecodeError
			if errors.As(err, &de) {
				perr.Line, perr.Column = de.Position()
			}
			return nil, perr
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, &ParseError{Source: source, Message: err.Error(), Err: err}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	doc.Source = source
	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// validate checks for missing names. Resolution problems are reported by
// Catalog.Define.
func (d *Document) validate() error {
	for i, def := range d.Interfaces {
		if def.Name == "" {
			return &ParseError{Source: d.Source, Message: fmt.Sprintf("interface #%d has no name", i+1)}
		}
		for j, m := range def.Methods {
			if m.Name == "" {
				return &ParseError{Source: d.Source, Message: fmt.Sprintf("method #%d of %s has no name", j+1, def.Name)}
			}
		}
	}
	for i, def := range d.Types {
		if def.Name == "" {
			return &ParseError{Source: d.Source, Message: fmt.Sprintf("type #%d has no name", i+1)}
		}
		if len(def.Implements) == 0 {
			return &ParseError{Source: d.Source, Message: fmt.Sprintf("type %s implements nothing", def.Name)}
		}
	}
	return nil
}
