package hclcell

import (
	"github.com/vk/notegrid/internal/cell"
)

// Analyze reports the imports and exports of a code cell. Names the cell
// reads without binding them become named imports from the document scope.
func (d *Dialect) Analyze(code string) (cell.Analysis, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	pc, err := d.parse(code, d.globals())
	if err != nil {
		return cell.Analysis{}, err
	}

	analysis := cell.Analysis{
		Imports: append([]cell.ImportDefinition(nil), pc.imports...),
		Exports: cell.ExportFacts{
			Named:         cell.SortedKeys(pc.attrs),
			HasDefault:    pc.render != nil,
			DefaultParams: pc.params,
		},
	}
	if len(pc.free) > 0 {
		doc := cell.ImportDefinition{Module: cell.DocumentScope}
		for _, name := range pc.free {
			doc.Named = append(doc.Named, cell.NamedBinding{Imported: name, Local: name})
		}
		analysis.Imports = append(analysis.Imports, doc)
	}

	d.logger.Debug("Cell analyzed.", "exports", analysis.Exports.Named, "imports", pc.free, "render_params", pc.params)
	return analysis, nil
}
