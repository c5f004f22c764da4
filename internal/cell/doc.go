// Package cell holds the data model shared by the dependency graph, the
// execution scheduler and the notebook session: cell kinds, import and export
// facts, evaluation records, the structured errors a cell can carry, and the
// interfaces of the collaborators that turn cell text into facts and values.
package cell
