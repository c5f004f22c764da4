package scheduler

import (
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
)

// State returns a snapshot of one cell's state.
func (s *Scheduler) State(id cellid.ID) (CellState, bool) {
	st, ok := s.states[id]
	if !ok {
		return CellState{}, false
	}
	return *st, true
}

// States returns snapshots of every cell in document order.
func (s *Scheduler) States() []CellState {
	out := make([]CellState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.states[id])
	}
	return out
}

// Statuses returns the status of every cell in document order.
func (s *Scheduler) Statuses() []Status {
	out := make([]Status, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.states[id].Status)
	}
	return out
}

// Current returns the current cell, its in-flight run token (empty once the
// run settled) and the last step number handed out.
func (s *Scheduler) Current() (cellid.ID, string, int) {
	return s.currentCell, s.currentRun, s.stepCounter
}

// ActiveRun returns the run token of the cell's in-flight evaluation.
func (s *Scheduler) ActiveRun(id cellid.ID) (string, bool) {
	run, ok := s.runs[id]
	return run, ok
}

// Order returns the document order the scheduler works with.
func (s *Scheduler) Order() []cellid.ID {
	return append([]cellid.ID(nil), s.order...)
}

// Scope returns the composed scope the cell evaluates against.
func (s *Scheduler) Scope(id cellid.ID) cell.Record {
	st, ok := s.states[id]
	if !ok {
		return cell.Record{}
	}
	return st.Scope
}
