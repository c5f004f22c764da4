/*
Package notebook is the single-document live-notebook session.

# How It Works

A Notebook owns the cells of one document in visual order. Every edit is
pushed through the dependency graph manager (for code cells) and the new
order of code cells is handed to the scheduler. Evaluations run in their own
goroutines and only deliver their outcome on a channel; Tick drains that
channel, feeds the scheduler and starts the next cell picked by it. Run calls
Tick on a fixed interval and Settle ticks until nothing is left to run.

All state is guarded by one mutex, so the graph manager and scheduler always
see a single control thread. Observers are notified after the mutex is
released, in the order the events were produced.

# Relationship with Other Components

  - depgraph.Manager: symbol table and structural errors.
  - scheduler.Scheduler: evaluation state machine.
  - cell.Evaluator: runs code; it may be slow and is cancelled when its run is
    superseded.
*/
package notebook
