package notebook

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
	"github.com/vk/notegrid/internal/depgraph"
	"github.com/vk/notegrid/internal/scheduler"
)

// ErrUnknownCell is returned for ids that are not part of the document.
var ErrUnknownCell = errors.New("unknown cell")

// Insert adds a cell at index in document order and returns its id. An index
// outside the document appends the cell.
func (n *Notebook) Insert(index int, kind cell.Kind, source string) (cellid.ID, error) {
	n.mu.Lock()
	defer n.unlock()

	id := n.ids.Next()
	n.cells[id] = &cell.Cell{ID: id, Kind: kind, Source: source}
	if index < 0 || index > len(n.order) {
		index = len(n.order)
	}
	n.order = slices.Insert(n.order, index, id)
	n.logger.Debug("Cell inserted.", "cell", id, "kind", kind, "index", index)

	n.applySource(id)
	n.syncOrder()
	n.emit(Event{Kind: DocumentChanged})
	n.sync()
	return id, nil
}

// Append adds a cell at the end of the document.
func (n *Notebook) Append(kind cell.Kind, source string) (cellid.ID, error) {
	return n.Insert(-1, kind, source)
}

// Update replaces the source of a cell. A code cell that already ran is run
// again with the new source.
func (n *Notebook) Update(id cellid.ID, source string) error {
	n.mu.Lock()
	defer n.unlock()

	c, ok := n.cells[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCell, id)
	}
	if c.Source == source {
		return nil
	}
	c.Source = source
	n.logger.Debug("Cell updated.", "cell", id, "kind", c.Kind)

	n.applySource(id)
	if st, ok := n.sched.State(id); ok && st.Status != scheduler.Init {
		n.start(id)
	}
	n.emit(Event{Kind: DocumentChanged})
	n.sync()
	return nil
}

// Delete removes a cell from the document.
func (n *Notebook) Delete(id cellid.ID) error {
	n.mu.Lock()
	defer n.unlock()

	c, ok := n.cells[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCell, id)
	}
	delete(n.cells, id)
	delete(n.code, id)
	n.order = slices.DeleteFunc(n.order, func(other cellid.ID) bool { return other == id })
	n.logger.Debug("Cell deleted.", "cell", id, "kind", c.Kind)

	switch c.Kind {
	case cell.Code:
		n.handleGraphEvents(id, n.graph.DeleteSnippet(id))
	case cell.Declaration:
		delete(n.declErrs, id)
		n.refreshDeclarations()
	}
	n.syncOrder()
	n.emit(Event{Kind: DocumentChanged})
	n.sync()
	return nil
}

// Move places a cell at index in document order. Composed scopes follow the
// new order the next time an upstream cell commits.
func (n *Notebook) Move(id cellid.ID, index int) error {
	n.mu.Lock()
	defer n.unlock()

	if _, ok := n.cells[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCell, id)
	}
	n.order = slices.DeleteFunc(n.order, func(other cellid.ID) bool { return other == id })
	if index < 0 || index > len(n.order) {
		index = len(n.order)
	}
	n.order = slices.Insert(n.order, index, id)
	n.logger.Debug("Cell moved.", "cell", id, "index", index)

	n.syncOrder()
	n.emit(Event{Kind: DocumentChanged})
	n.sync()
	return nil
}

// applySource pushes the current source of a cell into the graph or the
// declarations. Callers hold n.mu.
func (n *Notebook) applySource(id cellid.ID) {
	c := n.cells[id]
	switch c.Kind {
	case cell.Code:
		n.upsert(id)
	case cell.Declaration:
		n.refreshDeclarations()
	}
}

// upsert transpiles a code cell for evaluation and updates the graph.
func (n *Notebook) upsert(id cellid.ID) {
	c := n.cells[id]
	code, err := n.transpiler.Transpile(c.Source)
	if err != nil {
		code = ""
	}
	n.code[id] = code
	n.handleGraphEvents(id, n.graph.UpsertSnippet(id, c.Source))
}

// handleGraphEvents forwards graph events to observers. A cell that was
// told its dependencies changed while it holds a cycle or duplicate error is
// upserted again, since the change may have resolved the conflict.
func (n *Notebook) handleGraphEvents(trigger cellid.ID, events []depgraph.Event) {
	retried := map[cellid.ID]bool{trigger: true}
	queue := [][]depgraph.Event{events}
	for len(queue) > 0 {
		batch := queue[0]
		queue = queue[1:]
		for _, ev := range batch {
			switch ev.Kind {
			case depgraph.DependencyUpdated:
				n.emit(Event{Kind: DependencyUpdated, Cell: ev.Cell})
			case depgraph.RenderParamsUpdated:
				n.emit(Event{Kind: RenderParamsUpdated, Cell: ev.Cell})
			}
			if ev.Kind != depgraph.DependencyUpdated || retried[ev.Cell] || !structural(n.graph.Err(ev.Cell)) {
				continue
			}
			if _, ok := n.cells[ev.Cell]; !ok {
				continue
			}
			retried[ev.Cell] = true
			n.logger.Debug("Retrying rejected cell.", "cell", ev.Cell, "trigger", trigger)
			queue = append(queue, n.graph.UpsertSnippet(ev.Cell, n.cells[ev.Cell].Source))
		}
	}
}

// structural reports whether err is a cycle or duplicate rejection.
func structural(err error) bool {
	var cycle *cell.CycleError
	var dup *cell.DuplicateError
	return errors.As(err, &cycle) || errors.As(err, &dup)
}

// syncOrder hands the order of code cells to the scheduler.
func (n *Notebook) syncOrder() {
	var ids []cellid.ID
	for _, id := range n.order {
		if n.cells[id].Kind == cell.Code {
			ids = append(ids, id)
		}
	}
	n.sched.SetOrder(ids)
}
