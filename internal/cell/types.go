package cell

import (
	"sort"

	"github.com/vk/notegrid/internal/cellid"
)

// DocumentScope is the module specifier of bindings that are resolved against
// the other cells of the same document rather than an external module.
const DocumentScope = "."

// DefaultExport is the reserved record key under which a cell's rendered
// default export is stored.
const DefaultExport = "default"

// Kind distinguishes the three sorts of cells.
type Kind int

const (
	// Prose is a block of text with no evaluation semantics.
	Prose Kind = iota
	// Declaration holds top-level import statements shared by the whole document.
	Declaration
	// Code is an evaluatable snippet with a position in the evaluation order.
	Code
)

func (k Kind) String() string {
	switch k {
	case Prose:
		return "prose"
	case Declaration:
		return "declaration"
	case Code:
		return "code"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "prose":
		return Prose, true
	case "declaration":
		return Declaration, true
	case "code":
		return Code, true
	default:
		return Prose, false
	}
}

// Cell is a single block of a notebook document.
type Cell struct {
	ID     cellid.ID
	Kind   Kind
	Source string
}

// NamedBinding is one `imported as local` pair of an import statement.
type NamedBinding struct {
	Imported string
	Local    string
}

// ImportDefinition describes a single import statement.
type ImportDefinition struct {
	Module    string
	Default   string
	Namespace string
	Named     []NamedBinding
}

// IsDocument reports whether the import resolves against other cells.
func (d ImportDefinition) IsDocument() bool {
	return d.Module == DocumentScope
}

// LocalNames returns every name the statement binds in the importing cell.
func (d ImportDefinition) LocalNames() []string {
	var names []string
	if d.Default != "" {
		names = append(names, d.Default)
	}
	if d.Namespace != "" {
		names = append(names, d.Namespace)
	}
	for _, nb := range d.Named {
		names = append(names, nb.Local)
	}
	return names
}

// ImportedNames returns the names the statement pulls out of its module.
func (d ImportDefinition) ImportedNames() []string {
	names := make([]string, 0, len(d.Named))
	for _, nb := range d.Named {
		names = append(names, nb.Imported)
	}
	return names
}

// ExportFacts is what a code cell makes available to the rest of the document.
type ExportFacts struct {
	// Named is the sorted set of named export identifiers.
	Named []string
	// HasDefault is true when the cell has a default export.
	HasDefault bool
	// DefaultParams lists the names the default export destructures from
	// its first parameter. They decide how the cell renders.
	DefaultParams []string
}

// Analysis is the output of the static-analysis collaborator.
type Analysis struct {
	Imports []ImportDefinition
	Exports ExportFacts
}

// DocumentSymbols returns the sorted, de-duplicated names this analysis imports
// from other cells of the document.
func (a Analysis) DocumentSymbols() []string {
	seen := make(map[string]struct{})
	for _, d := range a.Imports {
		if !d.IsDocument() {
			continue
		}
		for _, name := range d.ImportedNames() {
			seen[name] = struct{}{}
		}
	}
	return SortedKeys(seen)
}

// SortedKeys returns the keys of a string set in ascending order.
func SortedKeys[V any](set map[string]V) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
