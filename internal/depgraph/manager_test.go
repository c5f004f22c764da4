package depgraph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
	"github.com/vk/notegrid/internal/testutil"
)

const (
	cA cellid.ID = "c1"
	cB cellid.ID = "c2"
	cC cellid.ID = "c3"
	cD cellid.ID = "c4"
)

func newTestManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	logger, _ := testutil.NewLogger(t)
	opts = append([]Option{WithLogger(logger)}, opts...)
	return New(testutil.FakeTranspiler, testutil.FakeAnalyzer, opts...)
}

func snippet(exports, imports []string, extra ...string) string {
	return testutil.Snippet(exports, imports, extra...)
}

// recorder is an Observer that remembers every call in order.
type recorder struct {
	calls []Event
}

func (r *recorder) DependencyUpdated(id cellid.ID) {
	r.calls = append(r.calls, Event{Kind: DependencyUpdated, Cell: id})
}

func (r *recorder) RenderParamsUpdated(id cellid.ID) {
	r.calls = append(r.calls, Event{Kind: RenderParamsUpdated, Cell: id})
}

func count(events []Event, kind EventKind, id cellid.ID) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind && ev.Cell == id {
			n++
		}
	}
	return n
}

func TestUpsert_RecordsTransitiveDependencies(t *testing.T) {
	m := newTestManager(t)

	m.UpsertSnippet(cA, snippet([]string{"s"}, nil))
	m.UpsertSnippet(cB, snippet([]string{"t"}, []string{"s"}))
	m.UpsertSnippet(cC, snippet([]string{"u"}, []string{"t"}))

	require.NoError(t, m.Err(cA))
	require.NoError(t, m.Err(cB))
	require.NoError(t, m.Err(cC))

	assert.Equal(t, []string{"s"}, m.CellDependencies(cB))
	assert.Equal(t, []string{"s"}, m.Dependencies("t"))
	assert.Equal(t, []string{"s", "t"}, m.CellDependencies(cC))
	assert.Equal(t, []string{"s", "t"}, m.Dependencies("u"))
	assert.Equal(t, []string{"s", "t", "u"}, m.Symbols())

	owner, ok := m.DefinedBy("t")
	require.True(t, ok)
	assert.Equal(t, cB, owner)
}

func TestUpsert_UndefinedImportContributesOnlyItsName(t *testing.T) {
	m := newTestManager(t)

	m.UpsertSnippet(cB, snippet([]string{"t"}, []string{"later"}))
	require.NoError(t, m.Err(cB))
	assert.Equal(t, []string{"later"}, m.Dependencies("t"))

	// Defining the import afterwards, even in a cell that sits later in the
	// document, is legal and flows into the importer's dependency set.
	events := m.UpsertSnippet(cC, snippet([]string{"later"}, []string{"root"}))
	require.NoError(t, m.Err(cC))
	assert.Equal(t, []string{"later", "root"}, m.Dependencies("t"))
	assert.Equal(t, 1, count(events, DependencyUpdated, cB))
}

func TestUpsert_AddingExportUsedByDependentsIsNotACycle(t *testing.T) {
	m := newTestManager(t)

	m.UpsertSnippet(cA, snippet([]string{"a"}, nil))
	m.UpsertSnippet(cB, snippet([]string{"b"}, []string{"a", "extra"}))
	require.NoError(t, m.Err(cB))

	m.UpsertSnippet(cA, snippet([]string{"a", "extra"}, nil))
	require.NoError(t, m.Err(cA))

	owner, ok := m.DefinedBy("extra")
	require.True(t, ok)
	assert.Equal(t, cA, owner)
	assert.Equal(t, []string{"a", "extra"}, m.Dependencies("b"))
}

func TestUpsert_CyclicDefinition(t *testing.T) {
	upserts := map[string][]cellid.ID{
		"A first": {cA, cB},
		"B first": {cB, cA},
	}
	sources := map[cellid.ID]string{
		cA: snippet([]string{"x"}, []string{"y"}),
		cB: snippet([]string{"y"}, []string{"x"}),
	}

	for name, order := range upserts {
		t.Run(name, func(t *testing.T) {
			m := newTestManager(t)
			first, second := order[0], order[1]

			m.UpsertSnippet(first, sources[first])
			require.NoError(t, m.Err(first))

			m.UpsertSnippet(second, sources[second])
			var cyc *cell.CycleError
			require.True(t, errors.As(m.Err(second), &cyc), "got %v", m.Err(second))

			// Once both exist, upserting either one is rejected.
			for _, id := range []cellid.ID{first, second} {
				m.UpsertSnippet(id, sources[id])
				assert.True(t, errors.As(m.Err(id), &cyc), "cell %s: got %v", id, m.Err(id))
			}

			// The table keeps only the last valid, non-cyclic state.
			assert.Len(t, m.Symbols(), 1)
			owner, ok := m.DefinedBy(m.Symbols()[0])
			require.True(t, ok)
			assert.Equal(t, first, owner)
		})
	}
}

func TestUpsert_CycleResolvedByEdit(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, snippet([]string{"x"}, []string{"y"}))
	m.UpsertSnippet(cB, snippet([]string{"y"}, []string{"x"}))
	require.Error(t, m.Err(cB))

	events := m.UpsertSnippet(cB, snippet([]string{"y"}, nil))
	require.NoError(t, m.Err(cB))
	assert.Equal(t, 1, count(events, DependencyUpdated, cA))

	m.UpsertSnippet(cA, snippet([]string{"x"}, []string{"y"}))
	require.NoError(t, m.Err(cA))
	assert.Equal(t, []string{"y"}, m.Dependencies("x"))
}

func TestCycle_ReleasedWhenPeerGoesAway(t *testing.T) {
	testCases := []struct {
		name    string
		release func(m *Manager) []Event
	}{
		{
			name:    "peer deleted",
			release: func(m *Manager) []Event { return m.DeleteSnippet(cB) },
		},
		{
			name:    "peer stops parsing",
			release: func(m *Manager) []Event { return m.UpsertSnippet(cB, "syntax-error") },
		},
		{
			name:    "peer drops the cyclic export",
			release: func(m *Manager) []Event { return m.UpsertSnippet(cB, snippet([]string{"z"}, []string{"x"})) },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestManager(t)
			m.UpsertSnippet(cA, snippet([]string{"x"}, []string{"y"}))
			m.UpsertSnippet(cB, snippet([]string{"y"}, []string{"x"}))
			m.UpsertSnippet(cA, snippet([]string{"x"}, []string{"y"}))
			var cyc *cell.CycleError
			require.True(t, errors.As(m.Err(cA), &cyc))

			events := tc.release(m)
			assert.Equal(t, 1, count(events, DependencyUpdated, cA), "the former cycle peer is told to retry")
			_, claimed := m.DefinedBy("y")
			assert.False(t, claimed, "a released claim never enters the symbol table")

			m.UpsertSnippet(cA, snippet([]string{"x"}, []string{"y"}))
			require.NoError(t, m.Err(cA))
		})
	}
}

func TestCycle_RepeatedRejectionDoesNotRenotify(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, snippet([]string{"x"}, []string{"y"}))
	m.UpsertSnippet(cB, snippet([]string{"y"}, []string{"x"}))

	events := m.UpsertSnippet(cB, snippet([]string{"y"}, []string{"x"}))
	assert.Zero(t, count(events, DependencyUpdated, cA), "the claim on y still stands")
}

func TestUpsert_SelfImportIsCyclic(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, snippet([]string{"x"}, []string{"x"}))

	var cyc *cell.CycleError
	require.True(t, errors.As(m.Err(cA), &cyc))
	assert.Equal(t, []string{"x"}, cyc.Symbols)
	assert.Empty(t, m.Symbols())
}

func TestUpsert_DuplicateDefinition(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, snippet([]string{"foo"}, nil))
	m.UpsertSnippet(cB, snippet([]string{"foo", "bar"}, nil))

	var dup *cell.DuplicateError
	require.True(t, errors.As(m.Err(cB), &dup))
	assert.Equal(t, map[string]cellid.ID{"foo": cA}, dup.Owners)
	owner, _ := m.DefinedBy("foo")
	assert.Equal(t, cA, owner)
	_, ok := m.DefinedBy("bar")
	assert.False(t, ok, "a rejected cell contributes nothing")

	events := m.DeleteSnippet(cA)
	assert.Equal(t, 1, count(events, DependencyUpdated, cB), "a blocked cell is told it can retry")

	m.UpsertSnippet(cB, snippet([]string{"foo", "bar"}, nil))
	require.NoError(t, m.Err(cB))
	owner, _ = m.DefinedBy("foo")
	assert.Equal(t, cB, owner)
}

func TestUpsert_ReexportBySameCellIsNotDuplicate(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, snippet([]string{"foo"}, nil))
	m.UpsertSnippet(cA, snippet([]string{"foo", "bar"}, nil))
	require.NoError(t, m.Err(cA))
	assert.Equal(t, []string{"bar", "foo"}, m.Symbols())
}

func TestUpsert_ExportShadowingImport(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, snippet([]string{"up"}, nil, "use:strings:up"))

	var dup *cell.DuplicateError
	require.True(t, errors.As(m.Err(cA), &dup))
	assert.Equal(t, []string{"up"}, dup.Shadowed)
	assert.Empty(t, m.Symbols())
}

func TestUpsert_ParseFailureClearsFacts(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, snippet([]string{"s"}, nil))
	m.UpsertSnippet(cD, snippet([]string{"d"}, []string{"s"}))
	require.Equal(t, []string{"s"}, m.Dependencies("d"))

	events := m.UpsertSnippet(cA, "syntax-error")

	var pe *cell.ParseError
	require.True(t, errors.As(m.Err(cA), &pe))
	_, ok := m.DefinedBy("s")
	assert.False(t, ok)
	_, ok = m.Facts(cA)
	assert.False(t, ok)
	assert.Equal(t, 1, count(events, DependencyUpdated, cD))
	assert.Equal(t, []string{"s"}, m.Dependencies("d"), "the direct import is still named")
}

func TestUpsert_AnalyzerFailureIsParseError(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, "bogus:directive")

	var pe *cell.ParseError
	require.True(t, errors.As(m.Err(cA), &pe))
	assert.Contains(t, pe.Error(), "unknown directive")
}

func TestUpsert_NotificationFanOut(t *testing.T) {
	obs := &recorder{}
	m := newTestManager(t, WithObserver(obs))

	m.UpsertSnippet(cA, snippet([]string{"p", "q"}, nil))
	m.UpsertSnippet(cB, snippet([]string{"b"}, []string{"p"}))
	m.UpsertSnippet(cC, snippet(nil, nil, "render:q"))
	m.UpsertSnippet(cD, snippet(nil, nil, "render:zzz"))
	obs.calls = nil

	events := m.UpsertSnippet(cA, snippet([]string{"p"}, nil))

	expected := []Event{
		{Kind: DependencyUpdated, Cell: cA, Trigger: cA},
		{Kind: RenderParamsUpdated, Cell: cA, Trigger: cA},
		{Kind: RenderParamsUpdated, Cell: cC, Trigger: cA},
	}
	if diff := cmp.Diff(expected, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, obs.calls, len(expected))
	for i, ev := range expected {
		assert.Equal(t, ev.Kind, obs.calls[i].Kind)
		assert.Equal(t, ev.Cell, obs.calls[i].Cell)
	}
}

func TestUpsert_UnchangedExportsNotifyOnlySelf(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, snippet([]string{"s"}, nil))
	m.UpsertSnippet(cB, snippet(nil, []string{"s"}))

	events := m.UpsertSnippet(cA, snippet([]string{"s"}, nil))
	assert.Len(t, events, 2)
	assert.Zero(t, count(events, DependencyUpdated, cB))
}

func TestUpsert_CascadeReachesIndirectDependents(t *testing.T) {
	m := newTestManager(t)
	m.UpsertSnippet(cA, snippet([]string{"a"}, []string{"x"}))
	m.UpsertSnippet(cB, snippet([]string{"b"}, []string{"a"}))
	m.UpsertSnippet(cC, snippet([]string{"c"}, []string{"b"}))
	require.Equal(t, []string{"a", "b", "x"}, m.Dependencies("c"))

	events := m.UpsertSnippet(cD, snippet([]string{"x"}, []string{"w"}))

	assert.Equal(t, []string{"w", "x"}, m.Dependencies("a"))
	assert.Equal(t, []string{"a", "w", "x"}, m.Dependencies("b"))
	assert.Equal(t, []string{"a", "b", "w", "x"}, m.Dependencies("c"))
	assert.Equal(t, 1, count(events, DependencyUpdated, cA))
	assert.Equal(t, 1, count(events, DependencyUpdated, cB))
	assert.Equal(t, 1, count(events, DependencyUpdated, cC))
}

func TestDelete_NotifiesDependentsOnce(t *testing.T) {
	obs := &recorder{}
	m := newTestManager(t, WithObserver(obs))
	m.UpsertSnippet(cA, snippet([]string{"s", "t"}, nil))
	m.UpsertSnippet(cD, snippet([]string{"d"}, []string{"s", "t"}, "render:s"))
	obs.calls = nil

	events := m.DeleteSnippet(cA)

	assert.Equal(t, 1, count(events, DependencyUpdated, cD))
	assert.Equal(t, 1, count(events, RenderParamsUpdated, cD))
	assert.Zero(t, count(events, DependencyUpdated, cA))
	assert.Zero(t, count(events, RenderParamsUpdated, cA))
	assert.Len(t, obs.calls, 2)

	_, ok := m.DefinedBy("s")
	assert.False(t, ok)
	assert.Nil(t, m.Err(cA))
	assert.Nil(t, m.CellDependencies(cA))
	assert.Nil(t, m.DeleteSnippet(cA), "deleting twice is a no-op")
}
