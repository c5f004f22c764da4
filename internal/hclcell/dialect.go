package hclcell

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/vk/notegrid/internal/cell"
)

// Dialect bundles the HCL transpiler, analyzer and evaluator. It satisfies
// cell.Transpiler, cell.Analyzer and cell.Evaluator and is safe for
// concurrent use; evaluations run outside the notebook's control thread.
type Dialect struct {
	logger *slog.Logger

	mu           sync.RWMutex
	modules      map[string]*Module
	declarations []cell.ImportDefinition
}

// Option configures a Dialect.
type Option func(*Dialect)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dialect) {
		d.logger = logger
	}
}

// WithModules registers additional modules. A module replaces any builtin
// of the same name.
func WithModules(modules ...*Module) Option {
	return func(d *Dialect) {
		for _, m := range modules {
			d.modules[m.Name] = m
		}
	}
}

// New creates a dialect with the builtin modules registered.
func New(opts ...Option) *Dialect {
	d := &Dialect{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		modules: make(map[string]*Module),
	}
	for _, m := range Builtins() {
		d.modules[m.Name] = m
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Modules returns the names of the registered modules.
func (d *Dialect) Modules() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cell.SortedKeys(d.modules)
}

// SetDeclarations replaces the imports contributed by declaration cells.
// Their local names are visible to every code cell.
func (d *Dialect) SetDeclarations(defs []cell.ImportDefinition) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, def := range defs {
		if err := d.checkImport(def); err != nil {
			return err
		}
	}
	d.declarations = append([]cell.ImportDefinition(nil), defs...)
	d.logger.Debug("Declarations updated.", "imports", len(defs))
	return nil
}

// Declarations returns the imports currently contributed by declaration cells.
func (d *Dialect) Declarations() []cell.ImportDefinition {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]cell.ImportDefinition(nil), d.declarations...)
}

// globals returns the names bound by declarations. Callers hold d.mu.
func (d *Dialect) globals() map[string]struct{} {
	out := make(map[string]struct{})
	for _, def := range d.declarations {
		for _, name := range def.LocalNames() {
			out[name] = struct{}{}
		}
	}
	return out
}

// checkImport validates an import statement against the registered modules.
// Callers hold d.mu.
func (d *Dialect) checkImport(def cell.ImportDefinition) error {
	if def.IsDocument() {
		if def.Default != "" || def.Namespace != "" {
			return cell.Parsef("imports from the document must name their bindings")
		}
		return nil
	}
	mod, ok := d.modules[def.Module]
	if !ok {
		return cell.Parsef("unknown module %q", def.Module)
	}
	for _, nb := range def.Named {
		if !mod.Has(nb.Imported) {
			return cell.Parsef("module %q has no member %q", def.Module, nb.Imported)
		}
	}
	return nil
}

func (d *Dialect) module(name string) (*Module, error) {
	mod, ok := d.modules[name]
	if !ok {
		return nil, fmt.Errorf("unknown module %q", name)
	}
	return mod, nil
}
