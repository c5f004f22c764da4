// Package depgraph is the dependency graph manager of a notebook document.
//
// It owns the symbol table: the mapping from every exported symbol name to
// the cell that defines it, together with the symbol's transitive dependency
// set. Each call to UpsertSnippet re-derives a cell's import and export facts
// through the transpiler and analyzer collaborators, rejects cyclic and
// duplicate definitions, updates the table incrementally and reports which
// cells need to hear about the change.
//
// The manager knows nothing about evaluation state or document order. A cell
// may import a symbol exported by a cell that appears later in the document;
// ordering is the scheduler's concern.
package depgraph
