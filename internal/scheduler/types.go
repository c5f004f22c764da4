package scheduler

import (
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
)

// Status is the evaluation status of a code cell.
type Status int

const (
	// Init means the cell has not run since it was created or reset.
	Init Status = iota
	// Running means an evaluation of the cell is in flight.
	Running
	// Live means the cell's latest run committed a result.
	Live
	// Outdated means an upstream cell started a new run after this cell's
	// result was produced.
	Outdated
)

func (s Status) String() string {
	switch s {
	case Init:
		return "init"
	case Running:
		return "running"
	case Live:
		return "live"
	case Outdated:
		return "outdated"
	default:
		return "unknown"
	}
}

// CellState is a snapshot of one cell's evaluation state.
type CellState struct {
	ID     cellid.ID
	Status Status
	// Step is the step number assigned when the cell last became the current
	// cell; zero if it never has.
	Step int
	// Result is the record committed by the latest run, or nil.
	Result cell.Record
	// Scope is the merged result of the live cells preceding this one.
	Scope cell.Record
	// Err is the evaluation error of the latest committed run, if any.
	Err error

	// committed is true once any run of the cell has committed.
	committed bool
}
