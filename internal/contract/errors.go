package contract

import (
	"errors"
	"fmt"
)

// Errors returned while defining contracts.
var (
	// ErrUnknownInterface indicates a name that no catalog in the chain defines.
	ErrUnknownInterface = errors.New("unknown interface")

	// ErrDuplicateDefinition indicates a name defined twice, either within a
	// document or against a visible catalog.
	ErrDuplicateDefinition = errors.New("duplicate definition")

	// ErrCycle indicates interfaces that extend each other.
	ErrCycle = errors.New("interface cycle")

	// ErrUnsupportedFormat indicates a format other than TOML or YAML.
	ErrUnsupportedFormat = errors.New("unsupported contract format")
)

// ParseError represents an error while parsing a contract document.
type ParseError struct {
	// Source names the document, usually a file path.
	Source string
	// Line is the line number where the error occurred (if available).
	Line int
	// Column is the column number where the error occurred (if available).
	Column int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Source, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Source, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Source, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
