package cell

import "context"

// Transpiler turns raw cell text into normalized, executable code. Failures
// should be reported as *ParseError.
type Transpiler interface {
	Transpile(source string) (string, error)
}

// Analyzer extracts import statements and export facts from normalized code.
type Analyzer interface {
	Analyze(code string) (Analysis, error)
}

// Evaluator runs normalized code against a composed scope and returns the
// record of exported values. It may block; the scheduler only observes its
// start and settlement.
type Evaluator interface {
	Evaluate(ctx context.Context, code string, scope Record) (Record, error)
}

// TranspilerFunc adapts a function to the Transpiler interface.
type TranspilerFunc func(source string) (string, error)

func (f TranspilerFunc) Transpile(source string) (string, error) { return f(source) }

// AnalyzerFunc adapts a function to the Analyzer interface.
type AnalyzerFunc func(code string) (Analysis, error)

func (f AnalyzerFunc) Analyze(code string) (Analysis, error) { return f(code) }

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, code string, scope Record) (Record, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, code string, scope Record) (Record, error) {
	return f(ctx, code, scope)
}
