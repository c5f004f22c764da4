package notebook

import (
	"bytes"
	"sort"

	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
)

// refreshDeclarations collects the imports of every declaration cell in
// document order and hands them to the declarer. A declaration cell that
// fails to parse or names an unknown module contributes nothing. When the
// effective declarations change, every code cell is analyzed again. Callers
// hold n.mu.
func (n *Notebook) refreshDeclarations() {
	if n.declarer == nil {
		return
	}

	var defs []cell.ImportDefinition
	for _, id := range n.order {
		c := n.cells[id]
		if c.Kind != cell.Declaration {
			continue
		}
		parsed, err := cell.ParseImports([]byte(c.Source), id.String())
		if err == nil {
			err = n.declarer.SetDeclarations(append(append([]cell.ImportDefinition(nil), defs...), parsed...))
		}
		if err != nil {
			n.logger.Debug("Declaration cell rejected.", "cell", id, "error", err)
			n.declErrs[id] = err
			continue
		}
		delete(n.declErrs, id)
		defs = append(defs, parsed...)
	}

	before := cell.FormatImports(n.declared)
	n.declared = defs
	if err := n.declarer.SetDeclarations(defs); err != nil {
		// Every definition was accepted above.
		n.logger.Error("Declarations rejected.", "error", err)
	}
	if bytes.Equal(before, cell.FormatImports(defs)) {
		return
	}

	n.logger.Debug("Declarations changed, analyzing code cells again.", "imports", len(defs))
	for _, id := range n.codeCellsByID() {
		n.upsert(id)
	}
}

// codeCellsByID returns the code cells in id order, the order the graph
// manager reports events in.
func (n *Notebook) codeCellsByID() []cellid.ID {
	var ids []cellid.ID
	for id, c := range n.cells {
		if c.Kind == cell.Code {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return cellid.Less(ids[i], ids[j]) })
	return ids
}
