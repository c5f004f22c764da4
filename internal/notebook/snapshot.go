package notebook

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
	"github.com/vk/notegrid/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
)

// CellView is a read-only snapshot of one cell.
type CellView struct {
	ID     cellid.ID
	Kind   cell.Kind
	Source string

	// The fields below are only set for code cells.
	Status       scheduler.Status
	Step         int
	Exports      []string
	Imports      []string
	RenderParams []string
	Result       cell.Record
	Scope        cell.Record

	// Err is the structural, declaration or evaluation error of the cell.
	Err error
}

// Snapshot is a read-only view of the whole document.
type Snapshot struct {
	Cells   []CellView
	Current cellid.ID
	Step    int
}

// Snapshot returns the current state of every cell in document order.
func (n *Notebook) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	current, _, step := n.sched.Current()
	snap := Snapshot{Cells: make([]CellView, 0, len(n.order)), Current: current, Step: step}
	for _, id := range n.order {
		snap.Cells = append(snap.Cells, n.view(id))
	}
	return snap
}

// Cell returns a snapshot of one cell.
func (n *Notebook) Cell(id cellid.ID) (CellView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.cells[id]; !ok {
		return CellView{}, fmt.Errorf("%w: %s", ErrUnknownCell, id)
	}
	return n.view(id), nil
}

// Cells returns the cells in document order.
func (n *Notebook) Cells() []cell.Cell {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]cell.Cell, 0, len(n.order))
	for _, id := range n.order {
		out = append(out, *n.cells[id])
	}
	return out
}

func (n *Notebook) view(id cellid.ID) CellView {
	c := n.cells[id]
	v := CellView{ID: id, Kind: c.Kind, Source: c.Source, Err: n.cellError(id)}
	if st, ok := n.sched.State(id); ok {
		v.Status, v.Step = st.Status, st.Step
		v.Result, v.Scope = st.Result, st.Scope
	}
	if facts, ok := n.graph.Facts(id); ok {
		v.Exports = facts.Exports.Named
		v.Imports = facts.DocumentSymbols()
		v.RenderParams = facts.Exports.DefaultParams
	}
	return v
}

// cellError picks the error shown for a cell. Structural errors win over
// evaluation errors, which are only meaningful for code the graph accepted.
func (n *Notebook) cellError(id cellid.ID) error {
	if err := n.graph.Err(id); err != nil {
		return err
	}
	if err, ok := n.declErrs[id]; ok {
		return err
	}
	if st, ok := n.sched.State(id); ok {
		return st.Err
	}
	return nil
}

// Render evaluates the default export of a live cell against its current
// scope without running the cell. It needs an evaluator that implements
// Renderer.
func (n *Notebook) Render(ctx context.Context, id cellid.ID) (cty.Value, error) {
	n.mu.Lock()
	renderer, ok := n.evaluator.(Renderer)
	if !ok {
		n.mu.Unlock()
		return cty.NilVal, errors.New("evaluator cannot render")
	}
	st, known := n.sched.State(id)
	code := n.code[id]
	n.mu.Unlock()

	if !known {
		return cty.NilVal, fmt.Errorf("%w: %s", ErrUnknownCell, id)
	}
	if st.Status != scheduler.Live {
		return cty.NilVal, fmt.Errorf("cell %s is %s", id, st.Status)
	}
	return renderer.Render(ctx, code, cell.Merge(st.Scope), st.Result)
}

// Load replaces the document with cells, in order. Cells that carry an id
// keep it; the others get a fresh one.
func (n *Notebook) Load(cells []cell.Cell) error {
	seen := make(map[cellid.ID]bool, len(cells))
	for _, c := range cells {
		if c.ID == cellid.None {
			continue
		}
		if _, err := cellid.Parse(c.ID.String()); err != nil {
			return err
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate cell id %s", c.ID)
		}
		seen[c.ID] = true
	}

	n.mu.Lock()
	defer n.unlock()

	for _, id := range append([]cellid.ID(nil), n.order...) {
		if n.cells[id].Kind == cell.Code {
			n.handleGraphEvents(id, n.graph.DeleteSnippet(id))
		}
	}
	n.cancelRuns()
	n.cells = make(map[cellid.ID]*cell.Cell, len(cells))
	n.code = make(map[cellid.ID]string, len(cells))
	n.declErrs = make(map[cellid.ID]error)
	n.order = n.order[:0]
	n.syncOrder()

	for id := range seen {
		n.ids.Observe(id)
	}
	for _, c := range cells {
		id := c.ID
		if id == cellid.None {
			id = n.ids.Next()
		}
		n.cells[id] = &cell.Cell{ID: id, Kind: c.Kind, Source: c.Source}
		n.order = append(n.order, id)
	}
	n.refreshDeclarations()
	for _, id := range n.order {
		if n.cells[id].Kind == cell.Code {
			n.upsert(id)
		}
	}
	n.syncOrder()
	n.logger.Debug("Document loaded.", "cells", len(n.order))

	n.emit(Event{Kind: DocumentChanged})
	n.sync()
	return nil
}
