package depgraph

import (
	"errors"
	"io"
	"log/slog"
	"sort"

	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
)

// Manager owns the symbol table of one document. It is not safe for
// concurrent use; the notebook session serializes all calls.
type Manager struct {
	transpiler cell.Transpiler
	analyzer   cell.Analyzer
	logger     *slog.Logger
	observer   Observer

	symbols map[string]*symbol
	cells   map[cellid.ID]*entry
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithObserver registers an observer that receives every notification.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// New creates an empty manager backed by the given collaborators.
func New(transpiler cell.Transpiler, analyzer cell.Analyzer, opts ...Option) *Manager {
	m := &Manager{
		transpiler: transpiler,
		analyzer:   analyzer,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		symbols:    make(map[string]*symbol),
		cells:      make(map[cellid.ID]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// UpsertSnippet recomputes the import and export facts of cell id from its
// source text and updates the symbol table. Structural problems are recorded
// on the cell (see Err) rather than returned. The returned events list every
// notification caused by the update; the triggering cell always receives
// both kinds.
func (m *Manager) UpsertSnippet(id cellid.ID, source string) []Event {
	e, ok := m.cells[id]
	if !ok {
		e = &entry{id: id, deps: set{}}
		m.cells[id] = e
	}
	logger := m.logger.With("cell", id)
	claimed := e.claimed()

	analysis, err := m.analyze(source)
	if err != nil {
		logger.Debug("Snippet failed to parse, clearing its facts.", "error", err)
		changed := m.clear(e)
		e.err = err
		e.attempt = nil
		return m.notify(id, m.released(e, claimed, changed), true)
	}

	imports := newSet(analysis.DocumentSymbols()...)
	exports := newSet(analysis.Exports.Named...)
	deps := m.closure(id, imports)

	if cyclic := m.cyclic(id, imports, exports, deps); len(cyclic) > 0 {
		logger.Debug("Snippet rejected: cyclic reference.", "symbols", cyclic)
		e.err = &cell.CycleError{Symbols: cyclic}
		e.attempt = &analysis
		return m.notify(id, m.released(e, claimed, set{}), true)
	}

	if dup := m.duplicates(id, analysis, exports); dup != nil {
		logger.Debug("Snippet rejected: duplicate definition.", "symbols", dup.Symbols())
		e.err = dup
		e.attempt = &analysis
		return m.notify(id, m.released(e, claimed, set{}), true)
	}

	changed := m.commit(e, analysis, exports, deps)
	e.err = nil
	e.attempt = nil
	logger.Debug("Snippet accepted.", "exports", exports.sorted(), "deps", deps.sorted(), "changed", changed.sorted())
	return m.notify(id, m.released(e, claimed, changed), true)
}

// DeleteSnippet removes cell id and every symbol it defines. The deleted cell
// itself is not notified.
func (m *Manager) DeleteSnippet(id cellid.ID) []Event {
	e, ok := m.cells[id]
	if !ok {
		return nil
	}
	claimed := e.claimed()
	changed := m.clear(e)
	delete(m.cells, id)
	m.logger.Debug("Snippet deleted.", "cell", id, "removed", changed.sorted(), "released", claimed.sorted())
	changed.addAll(claimed)
	return m.notify(id, changed, false)
}

// released adds to changed the symbols a cycle-rejected cell claimed before
// its update and no longer claims or defines. They never reached the symbol
// table, but cells importing them were rejected against that claim and must
// hear that it is gone.
func (m *Manager) released(e *entry, before, changed set) set {
	now := e.claimed()
	exports := e.exports()
	out := changed.clone()
	for s := range before {
		if !now.has(s) && !exports.has(s) {
			out.add(s)
		}
	}
	return out
}

// analyze runs the transpiler and the analyzer. Any failure is reported as a
// *cell.ParseError.
func (m *Manager) analyze(source string) (cell.Analysis, error) {
	code, err := m.transpiler.Transpile(source)
	if err != nil {
		return cell.Analysis{}, asParseError(err)
	}
	analysis, err := m.analyzer.Analyze(code)
	if err != nil {
		return cell.Analysis{}, asParseError(err)
	}
	return analysis, nil
}

func asParseError(err error) error {
	var pe *cell.ParseError
	if errors.As(err, &pe) {
		return pe
	}
	return cell.Parsef("%v", err)
}

// closure returns the transitive dependency set of a cell importing the given
// symbols: the imports themselves plus the recorded dependency set of every
// import that is already defined. Symbols defined by the cell itself are
// about to be replaced, so only their names count.
func (m *Manager) closure(id cellid.ID, imports set) set {
	deps := imports.clone()
	for s := range imports {
		if sym, ok := m.symbols[s]; ok && sym.cell != id {
			deps.addAll(sym.deps)
		}
	}
	return deps
}

// cyclic returns the exported symbols that the cell would transitively depend
// on. Besides the recorded dependency sets it walks the import edges of every
// other cell, including the attempted facts of cells that are currently
// rejected as cyclic, so the cycle is reported whichever participant is
// upserted.
func (m *Manager) cyclic(id cellid.ID, imports, exports, deps set) []string {
	offending := set{}
	for s := range exports {
		if deps.has(s) {
			offending.add(s)
		}
	}

	visited := set{}
	queue := imports.sorted()
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		if visited.has(s) {
			continue
		}
		visited.add(s)
		if exports.has(s) {
			offending.add(s)
		}
		for next := range m.claimedImports(id, s) {
			if !visited.has(next) {
				queue = append(queue, next)
			}
		}
	}
	return offending.sorted()
}

// claimedImports returns the imports of every cell other than id that defines
// or claims symbol s.
func (m *Manager) claimedImports(id cellid.ID, s string) set {
	out := set{}
	if sym, ok := m.symbols[s]; ok && sym.cell != id {
		if owner, ok := m.cells[sym.cell]; ok {
			out.addAll(owner.imports())
		}
	}
	for _, e := range m.cells {
		if e.id == id || !e.rejectedAsCycle() {
			continue
		}
		if newSet(e.attempt.Exports.Named...).has(s) {
			out.addAll(newSet(e.attempt.DocumentSymbols()...))
		}
	}
	return out
}

// duplicates checks the exports of cell id against the symbol table and
// against the names the cell imports itself.
func (m *Manager) duplicates(id cellid.ID, analysis cell.Analysis, exports set) *cell.DuplicateError {
	owners := make(map[string]cellid.ID)
	for s := range exports {
		if sym, ok := m.symbols[s]; ok && sym.cell != id {
			owners[s] = sym.cell
		}
	}

	shadowed := set{}
	for _, d := range analysis.Imports {
		for _, local := range d.LocalNames() {
			if exports.has(local) {
				shadowed.add(local)
			}
		}
	}

	if len(owners) == 0 && len(shadowed) == 0 {
		return nil
	}
	return &cell.DuplicateError{Owners: owners, Shadowed: shadowed.sorted()}
}

// commit records accepted facts, registers the cell's symbols and cascades the
// change. It returns every symbol that was added, removed or changed.
func (m *Manager) commit(e *entry, analysis cell.Analysis, exports, deps set) set {
	changed := set{}
	for s := range e.exports() {
		if !exports.has(s) {
			delete(m.symbols, s)
			changed.add(s)
		}
	}
	for s := range exports {
		if sym, ok := m.symbols[s]; !ok || sym.cell != e.id || !sym.deps.equal(deps) {
			changed.add(s)
		}
		m.symbols[s] = &symbol{cell: e.id, deps: deps.clone()}
	}

	e.facts = analysis
	e.accepted = true
	e.deps = deps
	m.cascade(e.id, changed)
	return changed
}

// clear drops the accepted facts of a cell and unregisters its symbols. It
// returns the removed symbols plus everything the cascade touched.
func (m *Manager) clear(e *entry) set {
	changed := set{}
	for s := range e.exports() {
		if sym, ok := m.symbols[s]; ok && sym.cell == e.id {
			delete(m.symbols, s)
			changed.add(s)
		}
	}
	e.facts = cell.Analysis{}
	e.accepted = false
	e.deps = set{}
	m.cascade(e.id, changed)
	return changed
}

// cascade recomputes the dependency set of every cell that imports a changed
// symbol, and of their dependents in turn. Symbols whose dependency set moved
// are added to changed. A removed symbol stays in the set of a cell that
// imports it directly, since that cell still names it.
func (m *Manager) cascade(origin cellid.ID, changed set) {
	queue := changed.sorted()
	queued := changed.clone()
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		queued = withoutKey(queued, s)

		for _, e := range m.sortedEntries() {
			if e.id == origin || !e.accepted || !e.imports().has(s) {
				continue
			}
			deps := m.closure(e.id, e.imports())
			if deps.equal(e.deps) {
				continue
			}
			e.deps = deps
			for exp := range e.exports() {
				m.symbols[exp] = &symbol{cell: e.id, deps: deps.clone()}
				changed.add(exp)
				if !queued.has(exp) {
					queued.add(exp)
					queue = append(queue, exp)
				}
			}
		}
	}
}

func withoutKey(s set, key string) set {
	delete(s, key)
	return s
}

// notify builds the event list for a mutation of trigger and delivers it to
// the observer.
func (m *Manager) notify(trigger cellid.ID, changed set, includeTrigger bool) []Event {
	var events []Event
	if includeTrigger {
		events = append(events,
			Event{Kind: DependencyUpdated, Cell: trigger, Trigger: trigger},
			Event{Kind: RenderParamsUpdated, Cell: trigger, Trigger: trigger},
		)
	}
	if len(changed) > 0 {
		for _, e := range m.sortedEntries() {
			if e.id == trigger {
				continue
			}
			if e.references(changed) || e.blockedBy(changed) {
				events = append(events, Event{Kind: DependencyUpdated, Cell: e.id, Trigger: trigger})
			}
			if e.rendersWith(changed) {
				events = append(events, Event{Kind: RenderParamsUpdated, Cell: e.id, Trigger: trigger})
			}
		}
	}

	if m.observer != nil {
		for _, ev := range events {
			switch ev.Kind {
			case DependencyUpdated:
				m.observer.DependencyUpdated(ev.Cell)
			case RenderParamsUpdated:
				m.observer.RenderParamsUpdated(ev.Cell)
			}
		}
	}
	return events
}

// sortedEntries returns all cell entries in allocation order.
func (m *Manager) sortedEntries() []*entry {
	out := make([]*entry, 0, len(m.cells))
	for _, e := range m.cells {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return cellid.Less(out[i].id, out[j].id) })
	return out
}
