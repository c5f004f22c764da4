package depgraph

import (
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
)

// EventKind distinguishes the two notifications the manager emits.
type EventKind int

const (
	// DependencyUpdated tells a cell that something it imports was added,
	// removed or changed, so it must be re-transpiled.
	DependencyUpdated EventKind = iota
	// RenderParamsUpdated tells a cell that a symbol its default export
	// destructures was added, removed or changed.
	RenderParamsUpdated
)

func (k EventKind) String() string {
	switch k {
	case DependencyUpdated:
		return "dependency-updated"
	case RenderParamsUpdated:
		return "render-params-updated"
	default:
		return "unknown"
	}
}

// Event is a single notification addressed to Cell, caused by a mutation of
// Trigger.
type Event struct {
	Kind    EventKind
	Cell    cellid.ID
	Trigger cellid.ID
}

// Observer receives notifications synchronously, in the same order as the
// event list returned by the mutating call.
type Observer interface {
	DependencyUpdated(id cellid.ID)
	RenderParamsUpdated(id cellid.ID)
}

// symbol is one row of the symbol table.
type symbol struct {
	// cell is the defining cell.
	cell cellid.ID
	// deps is the transitive dependency set of the symbol.
	deps set
}

// entry is the manager's record of a single cell.
type entry struct {
	id cellid.ID
	// facts are the last accepted import/export facts. accepted is false
	// when the cell has never been accepted or its facts were cleared.
	facts    cell.Analysis
	accepted bool
	// deps is the transitive dependency set computed for the accepted facts.
	deps set
	// attempt holds the facts of the latest rejected update, if any.
	attempt *cell.Analysis
	// err is the structural error of the latest update, or nil.
	err error
}

func (e *entry) exports() set {
	if !e.accepted {
		return set{}
	}
	return newSet(e.facts.Exports.Named...)
}

func (e *entry) imports() set {
	if !e.accepted {
		return set{}
	}
	return newSet(e.facts.DocumentSymbols()...)
}

// references reports whether the accepted or attempted imports of the cell
// mention any of the given symbols.
func (e *entry) references(symbols set) bool {
	if e.imports().intersects(symbols) {
		return true
	}
	return e.attempt != nil && newSet(e.attempt.DocumentSymbols()...).intersects(symbols)
}

// rendersWith reports whether the cell's default export destructures any of
// the given symbols.
func (e *entry) rendersWith(symbols set) bool {
	if e.accepted && newSet(e.facts.Exports.DefaultParams...).intersects(symbols) {
		return true
	}
	return e.attempt != nil && newSet(e.attempt.Exports.DefaultParams...).intersects(symbols)
}

// rejectedAsCycle reports whether the latest update was rejected as cyclic.
func (e *entry) rejectedAsCycle() bool {
	_, ok := e.err.(*cell.CycleError)
	return ok && e.attempt != nil
}

// claimed returns the exports of a cycle-rejected attempt. Other cells are
// checked against them even though they are not in the symbol table.
func (e *entry) claimed() set {
	if !e.rejectedAsCycle() {
		return set{}
	}
	return newSet(e.attempt.Exports.Named...)
}

// blockedBy reports whether the latest update was rejected as a duplicate of
// one of the given symbols.
func (e *entry) blockedBy(symbols set) bool {
	dup, ok := e.err.(*cell.DuplicateError)
	if !ok {
		return false
	}
	for s := range dup.Owners {
		if symbols.has(s) {
			return true
		}
	}
	return false
}
