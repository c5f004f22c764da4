package depgraph

import (
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
)

// Facts returns the last accepted facts of a cell.
func (m *Manager) Facts(id cellid.ID) (cell.Analysis, bool) {
	e, ok := m.cells[id]
	if !ok || !e.accepted {
		return cell.Analysis{}, false
	}
	return e.facts, true
}

// Err returns the structural error recorded by the latest update of a cell:
// a *cell.ParseError, *cell.CycleError or *cell.DuplicateError, or nil.
func (m *Manager) Err(id cellid.ID) error {
	if e, ok := m.cells[id]; ok {
		return e.err
	}
	return nil
}

// DefinedBy returns the cell that defines symbol s.
func (m *Manager) DefinedBy(s string) (cellid.ID, bool) {
	sym, ok := m.symbols[s]
	if !ok {
		return cellid.None, false
	}
	return sym.cell, true
}

// Dependencies returns the sorted transitive dependency set of symbol s.
func (m *Manager) Dependencies(s string) []string {
	sym, ok := m.symbols[s]
	if !ok {
		return nil
	}
	return sym.deps.sorted()
}

// CellDependencies returns the sorted transitive dependency set of a cell.
func (m *Manager) CellDependencies(id cellid.ID) []string {
	e, ok := m.cells[id]
	if !ok {
		return nil
	}
	return e.deps.sorted()
}

// Symbols returns every defined symbol, sorted.
func (m *Manager) Symbols() []string {
	return cell.SortedKeys(m.symbols)
}
