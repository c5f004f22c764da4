package testutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/notegrid/internal/cell"
)

// The fake collaborators understand a tiny snippet language made of
// whitespace-separated directives:
//
//	export:x        named export x
//	import:y        import symbol y from the document
//	use:mod:local   import `local` from external module mod
//	render:p        default export destructuring p
//	default         default export without parameters
//	syntax-error    makes the transpiler fail
//
// Snippet builds such text; tests read better with it than with raw strings.

// Snippet renders a snippet with the given exports and document imports.
func Snippet(exports []string, imports []string, extra ...string) string {
	var parts []string
	for _, e := range exports {
		parts = append(parts, "export:"+e)
	}
	for _, i := range imports {
		parts = append(parts, "import:"+i)
	}
	parts = append(parts, extra...)
	return strings.Join(parts, " ")
}

// FakeTranspiler fails on `syntax-error` and otherwise returns the source.
var FakeTranspiler = cell.TranspilerFunc(func(source string) (string, error) {
	if strings.Contains(source, "syntax-error") {
		return "", &cell.ParseError{Diagnostics: []cell.Diagnostic{{Message: "unexpected token", Line: 1, Column: 1}}}
	}
	return strings.TrimSpace(source), nil
})

// FakeAnalyzer derives facts from snippet directives.
var FakeAnalyzer = cell.AnalyzerFunc(func(code string) (cell.Analysis, error) {
	var a cell.Analysis
	docImports := cell.ImportDefinition{Module: cell.DocumentScope}
	for _, field := range strings.Fields(code) {
		kind, rest, _ := strings.Cut(field, ":")
		switch kind {
		case "export":
			a.Exports.Named = append(a.Exports.Named, rest)
		case "import":
			docImports.Named = append(docImports.Named, cell.NamedBinding{Imported: rest, Local: rest})
		case "use":
			module, local, ok := strings.Cut(rest, ":")
			if !ok {
				return cell.Analysis{}, fmt.Errorf("malformed use directive %q", field)
			}
			a.Imports = append(a.Imports, cell.ImportDefinition{
				Module: module,
				Named:  []cell.NamedBinding{{Imported: local, Local: local}},
			})
		case "render":
			a.Exports.HasDefault = true
			a.Exports.DefaultParams = append(a.Exports.DefaultParams, rest)
		case "default":
			a.Exports.HasDefault = true
		default:
			return cell.Analysis{}, fmt.Errorf("unknown directive %q", field)
		}
	}
	if len(docImports.Named) > 0 {
		a.Imports = append(a.Imports, docImports)
	}
	return a, nil
})

// StaticEvaluator returns a fixed record per code text, or an error for code
// listed in failures.
type StaticEvaluator struct {
	Results  map[string]cell.Record
	Failures map[string]error
}

// Evaluate implements cell.Evaluator.
func (s *StaticEvaluator) Evaluate(_ context.Context, code string, _ cell.Record) (cell.Record, error) {
	if err, ok := s.Failures[code]; ok {
		return nil, err
	}
	return s.Results[code], nil
}
