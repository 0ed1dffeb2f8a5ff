// Package proxy defines proxy types from contract documents and creates
// instances that forward every call, tagged with its declaring interface,
// to a dispatcher.
package proxy

import (
	"fmt"

	"github.com/dshills/composite/internal/contract"
	"github.com/dshills/composite/internal/logger"
)

// Domain describes where a definition came from. CodeSource appears in
// error messages and picks the document format when the Provider has none.
type Domain struct {
	CodeSource string
}

// Provider defines proxy types. The zero value reads TOML and logs nothing.
type Provider struct {
	// Format overrides the document format.
	Format contract.Format
	// Logger receives a debug entry per defined type.
	Logger *logger.Logger
}

// NewProvider creates a provider that logs to log.
func NewProvider(log *logger.Logger) *Provider {
	return &Provider{Logger: log}
}

// DefineType loads definition into a new catalog whose parent is loader,
// then builds the proxy type called name. Name may be a composed type from
// the document or any interface visible in the resulting catalog. A nil
// loader means no parent.
func (p *Provider) DefineType(name string, definition []byte, loader *contract.Catalog, domain Domain) (*Type, error) {
	format := p.Format
	if format == "" && domain.CodeSource != "" {
		format = contract.FormatFromPath(domain.CodeSource)
	}

	source := domain.CodeSource
	if source == "" {
		source = "<" + name + ">"
	}

	doc, err := contract.ParseSource(source, definition, format)
	if err != nil {
		return nil, err
	}

	catalog := contract.NewCatalog(loader)
	if err := catalog.Define(doc); err != nil {
		return nil, fmt.Errorf("defining %s from %s: %w", name, source, err)
	}

	t, err := p.lookup(name, catalog)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", err, name, source)
	}
	t.domain = domain

	if p.Logger != nil {
		p.Logger.Debug("Defined proxy type.", "type", name, "source", source, "methods", len(t.methods))
	}
	return t, nil
}

// TypeFromCatalog builds the proxy type called name from an already
// populated catalog.
func (p *Provider) TypeFromCatalog(name string, catalog *contract.Catalog) (*Type, error) {
	t, err := p.lookup(name, catalog)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, name)
	}
	return t, nil
}

func (p *Provider) lookup(name string, catalog *contract.Catalog) (*Type, error) {
	var t *Type
	if ct, ok := catalog.Type(name); ok {
		t = NewType(ct.Name, ct.Implements...)
	} else if it, ok := catalog.Interface(name); ok {
		t = NewType(name, it)
	} else {
		return nil, ErrUnknownType
	}
	t.catalog = catalog
	return t, nil
}
