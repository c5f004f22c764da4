package cell

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/notegrid/internal/cellid"
)

// Diagnostic is a single positioned message from the transpiler or analyzer.
// Line and Column are 1-based; zero means the position is unknown.
type Diagnostic struct {
	Message string
	Line    int
	Column  int
}

func (d Diagnostic) String() string {
	if d.Line == 0 {
		return d.Message
	}
	return fmt.Sprintf("%d:%d: %s", d.Line, d.Column, d.Message)
}

// ParseError reports that a cell's text could not be transpiled or analyzed.
type ParseError struct {
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	parts := make([]string, 0, len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		parts = append(parts, d.String())
	}
	return "parse error: " + strings.Join(parts, "; ")
}

// NewParseError converts HCL diagnostics into a ParseError. Only error
// severity diagnostics are kept.
func NewParseError(diags hcl.Diagnostics) *ParseError {
	pe := &ParseError{}
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		msg := d.Summary
		if d.Detail != "" {
			msg = msg + ": " + d.Detail
		}
		diag := Diagnostic{Message: msg}
		if d.Subject != nil {
			diag.Line = d.Subject.Start.Line
			diag.Column = d.Subject.Start.Column
		}
		pe.Diagnostics = append(pe.Diagnostics, diag)
	}
	return pe
}

// Parsef builds a ParseError with a single unpositioned message.
func Parsef(format string, args ...any) *ParseError {
	return &ParseError{Diagnostics: []Diagnostic{{Message: fmt.Sprintf(format, args...)}}}
}

// CycleError reports that a cell's exports appear among its own transitive
// dependencies.
type CycleError struct {
	Symbols []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic reference: %s", strings.Join(e.Symbols, ", "))
}

// DuplicateError reports exported names that are already defined by another
// cell, or that shadow a name the cell imports.
type DuplicateError struct {
	// Owners maps each duplicated symbol to the cell that already defines it.
	Owners map[string]cellid.ID
	// Shadowed lists exported names that collide with the cell's own imports.
	Shadowed []string
}

// Symbols returns every offending name, sorted.
func (e *DuplicateError) Symbols() []string {
	set := make(map[string]struct{}, len(e.Owners)+len(e.Shadowed))
	for s := range e.Owners {
		set[s] = struct{}{}
	}
	for _, s := range e.Shadowed {
		set[s] = struct{}{}
	}
	return SortedKeys(set)
}

func (e *DuplicateError) Error() string {
	var parts []string
	for _, s := range SortedKeys(e.Owners) {
		parts = append(parts, fmt.Sprintf("%s (defined by %s)", s, e.Owners[s]))
	}
	shadowed := append([]string(nil), e.Shadowed...)
	sort.Strings(shadowed)
	for _, s := range shadowed {
		parts = append(parts, fmt.Sprintf("%s (shadows an import)", s))
	}
	return "duplicate definition: " + strings.Join(parts, ", ")
}
