package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/notegrid/internal/cell"
)

type gatedResult struct {
	record cell.Record
	err    error
}

// GatedEvaluator is a cell.Evaluator whose evaluations block until the test
// releases them. It records the scope each evaluation saw and when it ran.
type GatedEvaluator struct {
	// Started receives the code of every evaluation as it begins.
	Started chan string

	mu             sync.Mutex
	gates          map[string]chan gatedResult
	scopes         map[string]cell.Record
	ExecutionTimes map[string]*ExecutionRecord
}

// NewGatedEvaluator creates an evaluator with no released results.
func NewGatedEvaluator() *GatedEvaluator {
	return &GatedEvaluator{
		Started:        make(chan string, 64),
		gates:          make(map[string]chan gatedResult),
		scopes:         make(map[string]cell.Record),
		ExecutionTimes: make(map[string]*ExecutionRecord),
	}
}

func (g *GatedEvaluator) gate(code string) chan gatedResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[code]
	if !ok {
		ch = make(chan gatedResult, 16)
		g.gates[code] = ch
	}
	return ch
}

// Evaluate implements cell.Evaluator.
func (g *GatedEvaluator) Evaluate(ctx context.Context, code string, scope cell.Record) (cell.Record, error) {
	startTime := time.Now()
	g.mu.Lock()
	g.scopes[code] = scope
	g.mu.Unlock()
	g.Started <- code

	select {
	case res := <-g.gate(code):
		g.mu.Lock()
		g.ExecutionTimes[code] = &ExecutionRecord{Start: startTime, End: time.Now()}
		g.mu.Unlock()
		return res.record, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release lets one pending or future evaluation of code settle with the
// given outcome.
func (g *GatedEvaluator) Release(code string, record cell.Record, err error) {
	g.gate(code) <- gatedResult{record: record, err: err}
}

// Scope returns the scope the latest evaluation of code received.
func (g *GatedEvaluator) Scope(code string) cell.Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scopes[code]
}
