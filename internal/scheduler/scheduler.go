package scheduler

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
)

// Scheduler is the execution state machine of one document. It is not safe
// for concurrent use; the notebook session serializes all calls.
type Scheduler struct {
	logger *slog.Logger

	order  []cellid.ID
	states map[cellid.ID]*CellState
	// runs holds the active run token of every cell with a run in flight.
	runs map[cellid.ID]string

	currentCell cellid.ID
	currentRun  string
	stepCounter int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a scheduler with an empty document order.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		states: make(map[cellid.ID]*CellState),
		runs:   make(map[cellid.ID]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetOrder adopts the authoritative document order of code cells. Cells not
// seen before start in Init with an empty scope; cells missing from ids are
// destroyed together with their state.
func (s *Scheduler) SetOrder(ids []cellid.ID) {
	keep := make(map[cellid.ID]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
		if _, ok := s.states[id]; !ok {
			s.states[id] = &CellState{ID: id, Status: Init, Scope: cell.Record{}}
		}
	}
	for id := range s.states {
		if _, ok := keep[id]; !ok {
			delete(s.states, id)
			delete(s.runs, id)
			if s.currentCell == id {
				s.currentCell = cellid.None
				s.currentRun = ""
			}
		}
	}
	s.order = append([]cellid.ID(nil), ids...)
	s.logger.Debug("Document order updated.", "cells", len(ids))
}

// OnStart records that cell id began evaluating under runID.
func (s *Scheduler) OnStart(id cellid.ID, runID string) error {
	st, ok := s.states[id]
	if !ok {
		return fmt.Errorf("unknown cell: %s", id)
	}
	if runID == "" {
		return fmt.Errorf("empty run token for cell %s", id)
	}

	for _, other := range s.states {
		if other.ID != id && other.Status == Running {
			s.preempt(other)
		}
	}

	if s.currentCell != id {
		s.stepCounter++
		st.Step = s.stepCounter
		s.currentCell = id
	}
	st.Status = Running
	s.currentRun = runID
	s.runs[id] = runID

	var invalidated []cellid.ID
	for _, later := range s.after(id) {
		ls := s.states[later]
		if ls.Status == Live || ls.Status == Outdated {
			ls.Status = Outdated
			invalidated = append(invalidated, later)
		}
	}
	s.logger.Debug("Cell started.", "cell", id, "run", runID, "step", st.Step, "outdated", invalidated)
	return nil
}

// preempt revokes the run of a cell that is still running when another cell
// starts. A cell that never committed goes back to Init so that it is picked
// again; otherwise its previous result is now outdated.
func (s *Scheduler) preempt(st *CellState) {
	delete(s.runs, st.ID)
	if st.committed {
		st.Status = Outdated
	} else {
		st.Status = Init
	}
	s.logger.Debug("Running cell preempted.", "cell", st.ID, "status", st.Status)
}

// OnFinish records that the run runID of cell id settled with result, which
// may be nil. It reports whether the result was committed; results of
// superseded runs are discarded.
func (s *Scheduler) OnFinish(id cellid.ID, runID string, result cell.Record) bool {
	st, ok := s.states[id]
	if !ok {
		s.logger.Debug("Discarding result for unknown cell.", "cell", id, "run", runID)
		return false
	}

	active, inFlight := s.runs[id]
	if !inFlight || active != runID {
		switch {
		case s.currentCell == id && inFlight:
			st.Status = Running
		case st.Status == Init || st.Status == Live:
			// Reset, or already superseded by a newer commit.
		default:
			st.Status = Outdated
		}
		s.logger.Debug("Discarding stale result.", "cell", id, "run", runID, "status", st.Status)
		return false
	}

	delete(s.runs, id)
	if s.currentCell == id {
		s.currentRun = ""
	}
	st.Status = Live
	st.Result = result
	st.Err = nil
	st.committed = true

	s.recompose(id)
	s.logger.Debug("Cell result committed.", "cell", id, "run", runID, "keys", result.Keys())
	return true
}

// OnFail records an evaluation that threw. It is OnFinish with a nil result,
// plus err kept as the cell's side-channel error when the run was current.
func (s *Scheduler) OnFail(id cellid.ID, runID string, err error) bool {
	if !s.OnFinish(id, runID, nil) {
		return false
	}
	s.states[id].Err = err
	return true
}

// recompose rebuilds the scope of every cell after id from the results of the
// live cells preceding it. Statuses are left alone.
func (s *Scheduler) recompose(id cellid.ID) {
	idx := s.index(id)
	var live []cell.Record
	for i, cid := range s.order {
		st := s.states[cid]
		if i > idx {
			st.Scope = cell.Merge(live...)
		}
		if st.Status == Live {
			live = append(live, st.Result)
		}
	}
}

// ResetAll returns every code cell to Init and clears results and scopes.
// Identity and document order are preserved; the step counter keeps growing.
func (s *Scheduler) ResetAll() {
	for _, st := range s.states {
		st.Status = Init
		st.Step = 0
		st.Result = nil
		st.Scope = cell.Record{}
		st.Err = nil
		st.committed = false
	}
	s.runs = make(map[cellid.ID]string)
	s.currentCell = cellid.None
	s.currentRun = ""
	s.logger.Debug("All cells reset.", "cells", len(s.states))
}

// Next applies PickNext to the current document order.
func (s *Scheduler) Next() (cellid.ID, bool) {
	idx, ok := PickNext(s.Statuses())
	if !ok {
		return cellid.None, false
	}
	return s.order[idx], true
}

// PickNext returns the index of the cell that should start next: the first
// Init cell, unless a Running cell sits at or before it.
func PickNext(statuses []Status) (int, bool) {
	firstInit, firstRunning := -1, -1
	for i, st := range statuses {
		if st == Init && firstInit < 0 {
			firstInit = i
		}
		if st == Running && firstRunning < 0 {
			firstRunning = i
		}
	}
	if firstInit < 0 {
		return -1, false
	}
	if firstRunning >= 0 && firstRunning <= firstInit {
		return -1, false
	}
	return firstInit, true
}

func (s *Scheduler) index(id cellid.ID) int {
	for i, cid := range s.order {
		if cid == id {
			return i
		}
	}
	return -1
}

// after returns the cells positioned after id in document order.
func (s *Scheduler) after(id cellid.ID) []cellid.ID {
	idx := s.index(id)
	if idx < 0 {
		return nil
	}
	return s.order[idx+1:]
}
