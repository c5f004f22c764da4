package notebook

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
	"github.com/vk/notegrid/internal/ctxlog"
	"github.com/vk/notegrid/internal/depgraph"
	"github.com/vk/notegrid/internal/scheduler"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vk/notegrid/internal/notebook"

// Declarer receives the imports of the document's declaration cells.
type Declarer interface {
	SetDeclarations(defs []cell.ImportDefinition) error
}

// Renderer renders the default export of a cell again without running it.
type Renderer interface {
	Render(ctx context.Context, code string, scope, result cell.Record) (cty.Value, error)
}

// outcome is the settlement of one evaluation.
type outcome struct {
	id     cellid.ID
	runID  string
	record cell.Record
	err    error
}

// Notebook is a live document session. It is safe for concurrent use.
type Notebook struct {
	logger      *slog.Logger
	tracer      trace.Tracer
	autoRefresh bool

	transpiler cell.Transpiler
	evaluator  cell.Evaluator
	declarer   Declarer

	// ctx bounds every evaluation; Close cancels it.
	ctx   context.Context
	close context.CancelFunc

	outcomes chan outcome

	mu        sync.Mutex
	ids       *cellid.Allocator
	cells     map[cellid.ID]*cell.Cell
	order     []cellid.ID
	code      map[cellid.ID]string
	graph     *depgraph.Manager
	sched     *scheduler.Scheduler
	declErrs  map[cellid.ID]error
	declared  []cell.ImportDefinition
	runs      map[string]context.CancelFunc
	reported  map[cellid.ID]reported
	pending   []Event
	observers *observers
}

// Option configures a Notebook.
type Option func(*Notebook)

// WithLogger sets the logger of the notebook and its graph and scheduler.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notebook) {
		n.logger = logger
	}
}

// WithTracerProvider sets the provider used for evaluation spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(n *Notebook) {
		n.tracer = tp.Tracer(tracerName)
	}
}

// WithAutoRefresh makes an idle notebook re-run outdated cells in document
// order.
func WithAutoRefresh(enabled bool) Option {
	return func(n *Notebook) {
		n.autoRefresh = enabled
	}
}

// WithObserver subscribes obs before any cell exists.
func WithObserver(obs Observer) Option {
	return func(n *Notebook) {
		n.observers.add(obs)
	}
}

// New creates an empty notebook. When analyzer implements Declarer, the
// imports of declaration cells are handed to it.
func New(transpiler cell.Transpiler, analyzer cell.Analyzer, evaluator cell.Evaluator, opts ...Option) *Notebook {
	n := &Notebook{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:     otel.Tracer(tracerName),
		transpiler: transpiler,
		evaluator:  evaluator,
		outcomes:   make(chan outcome, 64),
		ids:        cellid.NewAllocator(),
		cells:      make(map[cellid.ID]*cell.Cell),
		code:       make(map[cellid.ID]string),
		declErrs:   make(map[cellid.ID]error),
		runs:       make(map[string]context.CancelFunc),
		reported:   make(map[cellid.ID]reported),
		observers:  &observers{},
	}
	for _, opt := range opts {
		opt(n)
	}
	if d, ok := analyzer.(Declarer); ok {
		n.declarer = d
	}

	n.ctx, n.close = context.WithCancel(ctxlog.WithLogger(context.Background(), n.logger))
	n.graph = depgraph.New(transpiler, analyzer, depgraph.WithLogger(n.logger.With("component", "depgraph")))
	n.sched = scheduler.New(scheduler.WithLogger(n.logger.With("component", "scheduler")))
	return n
}

// Close cancels every evaluation in flight. Outcomes that arrive later are
// dropped.
func (n *Notebook) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.close()
	n.cancelRuns()
}

// unlock releases the mutex and then delivers the events collected while it
// was held.
func (n *Notebook) unlock() {
	events := n.pending
	n.pending = nil
	n.mu.Unlock()
	n.observers.notify(events)
}

func (n *Notebook) cancelRuns() {
	for runID, cancel := range n.runs {
		cancel()
		delete(n.runs, runID)
	}
}
