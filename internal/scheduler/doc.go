// Package scheduler owns the evaluation state of every code cell and decides
// which cell runs next.
//
// # How It Works
//
// The scheduler is a synchronous state machine driven by two boundary
// events reported by whoever evaluates cells:
//
//  1. OnStart marks a cell running, assigns it a step number when it becomes
//     the current cell, and marks every later live or outdated cell outdated.
//  2. OnFinish commits a result if its run token is still the cell's active
//     token, then recomposes the scope of every later cell from the results
//     of the live cells preceding it. Results carrying a superseded token are
//     discarded.
//
// PickNext is the pure scheduling rule: the first never-run cell in document
// order may start only when no cell at or before it is running. At most one
// cell is ever running; starting a cell preempts any other running cell.
//
// # Relationship with Other Components
//
//   - Document order: supplied through SetOrder and treated as authoritative.
//   - Notebook: calls OnStart/OnFinish around each evaluation and asks Next
//     which cell to advance.
//   - Dependency graph: not consulted; cells are coupled only by identity.
package scheduler
