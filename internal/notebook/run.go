package notebook

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
	"github.com/vk/notegrid/internal/ctxlog"
	"github.com/vk/notegrid/internal/scheduler"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tick drains settled evaluations into the scheduler and starts the next
// cell, if any. It never blocks and reports whether anything happened.
func (n *Notebook) Tick(ctx context.Context) bool {
	n.mu.Lock()
	defer n.unlock()

	progressed := false
drain:
	for {
		select {
		case o := <-n.outcomes:
			n.settle(o)
			progressed = true
		default:
			break drain
		}
	}
	if ctx.Err() == nil && n.advance() {
		progressed = true
	}
	n.sync()
	return progressed
}

// Run ticks every interval until ctx is done.
func (n *Notebook) Run(ctx context.Context, interval time.Duration) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Notebook loop started.", "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Notebook loop stopped.")
			return nil
		case <-ticker.C:
			n.Tick(ctx)
		}
	}
}

// Settle ticks until no cell is running and none is waiting to run.
func (n *Notebook) Settle(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if n.Tick(ctx) {
			continue
		}
		if n.Idle() {
			return nil
		}
		select {
		case o := <-n.outcomes:
			n.mu.Lock()
			n.settle(o)
			n.sync()
			n.unlock()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Idle reports whether the notebook has nothing to run.
func (n *Notebook) Idle() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, st := range n.sched.Statuses() {
		if st == scheduler.Running {
			return false
		}
	}
	if _, ok := n.sched.Next(); ok {
		return false
	}
	_, refresh := n.refreshTarget()
	return !refresh
}

// Rerun starts a code cell now, whatever its status and position.
func (n *Notebook) Rerun(id cellid.ID) error {
	n.mu.Lock()
	defer n.unlock()

	c, ok := n.cells[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCell, id)
	}
	if c.Kind != cell.Code {
		return fmt.Errorf("cell %s is not a code cell", id)
	}
	n.start(id)
	n.sync()
	return nil
}

// RerunAll resets every code cell; the following ticks run the document
// again from the top.
func (n *Notebook) RerunAll() {
	n.mu.Lock()
	defer n.unlock()

	n.cancelRuns()
	n.sched.ResetAll()
	n.logger.Debug("Document reset for a full run.")
	n.sync()
}

// advance starts the cell picked by the scheduler, or with auto refresh the
// first outdated cell once nothing else is pending. Callers hold n.mu.
func (n *Notebook) advance() bool {
	if id, ok := n.sched.Next(); ok {
		n.start(id)
		return true
	}
	if id, ok := n.refreshTarget(); ok {
		n.start(id)
		return true
	}
	return false
}

// refreshTarget returns the first outdated cell when auto refresh is on and
// no cell is running.
func (n *Notebook) refreshTarget() (cellid.ID, bool) {
	if !n.autoRefresh {
		return cellid.None, false
	}
	for _, st := range n.sched.States() {
		switch st.Status {
		case scheduler.Running:
			return cellid.None, false
		case scheduler.Outdated:
			return st.ID, true
		}
	}
	return cellid.None, false
}

// start begins a new run of a code cell. Runs already in flight are
// superseded and cancelled. A cell the graph rejected fails at once with its
// structural error. Callers hold n.mu.
func (n *Notebook) start(id cellid.ID) {
	runID := uuid.NewString()
	if err := n.sched.OnStart(id, runID); err != nil {
		n.logger.Error("Failed to start cell.", "cell", id, "error", err)
		return
	}
	n.cancelRuns()

	if err := n.graph.Err(id); err != nil {
		n.logger.Debug("Cell cannot run.", "cell", id, "error", err)
		n.sched.OnFail(id, runID, err)
		return
	}

	code := n.code[id]
	scope := cell.Merge(n.sched.Scope(id))
	logger := n.logger.With("cell", id, "run", runID)
	ctx, cancel := context.WithCancel(ctxlog.WithLogger(n.ctx, logger))
	n.runs[runID] = cancel
	ctx, span := n.tracer.Start(ctx, "notebook.evaluate", trace.WithAttributes(
		attribute.String("notebook.cell_id", id.String()),
		attribute.String("notebook.run_id", runID),
		attribute.Int("notebook.scope_size", len(scope)),
	))
	logger.Debug("Cell evaluation started.")

	go func() {
		defer span.End()
		record, err := n.evaluator.Evaluate(ctx, code, scope)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		select {
		case n.outcomes <- outcome{id: id, runID: runID, record: record, err: err}:
		case <-n.ctx.Done():
		}
	}()
}

// settle hands one outcome to the scheduler. Callers hold n.mu.
func (n *Notebook) settle(o outcome) {
	if cancel, ok := n.runs[o.runID]; ok {
		cancel()
		delete(n.runs, o.runID)
	}

	var committed bool
	if o.err != nil {
		committed = n.sched.OnFail(o.id, o.runID, o.err)
	} else {
		committed = n.sched.OnFinish(o.id, o.runID, o.record)
	}
	n.logger.Debug("Cell evaluation settled.", "cell", o.id, "run", o.runID, "committed", committed, "error", o.err)
}
