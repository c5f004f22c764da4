package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/docfile"
	"github.com/vk/notegrid/internal/testutil"
)

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		in      Config
		want    Config
		wantErr string
	}{
		{
			name: "defaults",
			in:   Config{},
			want: Config{LogFormat: "text", LogLevel: "info", Tick: DefaultTick},
		},
		{
			name: "normalizes case",
			in:   Config{LogFormat: "JSON", LogLevel: "Debug", Tick: time.Second},
			want: Config{LogFormat: "json", LogLevel: "debug", Tick: time.Second},
		},
		{name: "bad format", in: Config{LogFormat: "xml"}, wantErr: "invalid log-format"},
		{name: "bad level", in: Config{LogLevel: "loud"}, wantErr: "invalid log-level"},
		{name: "negative tick", in: Config{Tick: -time.Second}, wantErr: "tick must be positive"},
		{name: "bad port", in: Config{HealthcheckPort: 70000}, wantErr: "invalid healthcheck port"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewConfig(tc.in)
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, *got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger("warn", "json", &buf).Info("hidden")
	assert.Empty(t, buf.String())

	newLogger("debug", "json", &buf).Debug("shown", "k", "v")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "v", line["k"])

	buf.Reset()
	newLogger("info", "text", &buf).Info("plain")
	assert.Contains(t, buf.String(), "msg=plain")
}

// newTestApp writes cells to a document in a temp dir and returns an app
// configured for it, plus its output buffer.
func newTestApp(t *testing.T, cells []cell.Cell, mutate func(*Config)) (*App, *bytes.Buffer) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doc"+docfile.Extension)
	if cells != nil {
		require.NoError(t, os.WriteFile(path, docfile.Encode(cells), 0o600))
	}
	cfg := Config{DocumentPath: path, LogLevel: "debug"}
	if mutate != nil {
		mutate(&cfg)
	}
	config, err := NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logW := &testutil.SafeBuffer{}
	a := NewApp(out, logW, config)
	t.Cleanup(func() {
		a.Close()
		if os.Getenv("NOTEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logW.String())
		}
	})
	return a, out
}

func TestRun_PrintsResults(t *testing.T) {
	a, out := newTestApp(t, []cell.Cell{
		{Kind: cell.Prose, Source: "# Totals"},
		{Kind: cell.Code, Source: "x = 20\n"},
		{Kind: cell.Code, Source: "y = x + 1\nrender {\n  label = \"y is ${y}\"\n}\n"},
	}, nil)

	require.NoError(t, a.Run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "c2 live step=1\n  x = 20\n")
	assert.Contains(t, got, "c3 live step=2\n")
	assert.Contains(t, got, "  y = 21\n")
	assert.Contains(t, got, `label = "y is 21"`)
	assert.NotContains(t, got, "c1")
}

func TestRun_ReportsFailedCells(t *testing.T) {
	a, out := newTestApp(t, []cell.Cell{
		{Kind: cell.Code, Source: "y = missing + 1\n"},
		{Kind: cell.Code, Source: "ok = 1\n"},
	}, nil)

	err := a.Run(context.Background())
	require.EqualError(t, err, "1 cell(s) failed")
	assert.Contains(t, out.String(), "c1 live step=1\n  error: ")
	assert.Contains(t, out.String(), "c2 live step=2\n  ok = 1\n")
}

func TestRun_Errors(t *testing.T) {
	a, _ := newTestApp(t, nil, func(c *Config) { c.DocumentPath = "" })
	assert.ErrorContains(t, a.Run(context.Background()), "document path is required")

	missing, _ := newTestApp(t, nil, nil)
	assert.ErrorContains(t, missing.Run(context.Background()), "failed to read document")
}

func TestHealthHandler(t *testing.T) {
	a, _ := newTestApp(t, []cell.Cell{{Kind: cell.Code, Source: "x = 1\n"}}, nil)
	require.NoError(t, a.Load(context.Background()))

	rec := httptest.NewRecorder()
	a.healthHandler(func() int { return 3 })(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok","cells":1,"clients":3}`, rec.Body.String())
}

func TestSave_WritesNotebookBack(t *testing.T) {
	a, _ := newTestApp(t, []cell.Cell{{Kind: cell.Code, Source: "x = 1\n"}}, nil)
	require.NoError(t, a.Load(context.Background()))
	_, err := a.Notebook().Append(cell.Prose, "added")
	require.NoError(t, err)

	require.NoError(t, a.Save(context.Background()))
	cells, err := docfile.Load(context.Background(), a.config.DocumentPath)
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, "added", cells[1].Source)
	assert.Equal(t, "c2", cells[1].ID.String())
}

// scriptedPrompter replays lines and then reports EOF.
type scriptedPrompter struct {
	lines   []string
	prompts []string
	history []string
}

func (p *scriptedPrompter) Prompt(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptedPrompter) AppendHistory(item string) {
	p.history = append(p.history, item)
}

func TestRepl(t *testing.T) {
	a, out := newTestApp(t, nil, func(c *Config) {
		c.DocumentPath = ""
		c.AutoRefresh = true
	})
	p := &scriptedPrompter{lines: []string{
		"x = 2",
		"render {",
		"  double = x * 2",
		"}",
		":edit c1 x = 5",
		":list",
		":declare import \"strings\" {  names = { up = \"upper\" } }",
		"shout = up(\"hey\")",
		":bogus",
		":quit",
		"never = 1",
	}}

	require.NoError(t, a.Repl(context.Background(), p))

	got := out.String()
	assert.Contains(t, got, "c1 live step=1\n  x = 2\n")
	assert.Contains(t, got, "double = 4")
	assert.Contains(t, got, "  x = 5\n")
	assert.Contains(t, got, "double = 10")
	assert.Contains(t, got, `shout = "HEY"`)
	assert.Contains(t, got, "error: unknown command :bogus")
	assert.NotContains(t, got, "never")

	assert.Equal(t, []string{promptMain, promptMain, promptCont, promptCont}, p.prompts[:4])
	assert.Equal(t, "render {   double = x * 2 }", p.history[1])
	assert.Len(t, a.Notebook().Cells(), 4)
}

func TestRepl_EndsAtEOF(t *testing.T) {
	a, out := newTestApp(t, nil, func(c *Config) { c.DocumentPath = "" })
	require.NoError(t, a.Repl(context.Background(), &scriptedPrompter{lines: []string{"a = 1"}}))
	assert.Contains(t, out.String(), "c1 live step=1\n  a = 1\n")
}

func TestIncomplete(t *testing.T) {
	testCases := []struct {
		src  string
		want bool
	}{
		{"x = 1", false},
		{"render {", true},
		{"render {\n  a = 1\n}", false},
		{"xs = [1,", true},
		{"f = max(1,", true},
		{"s = <<EOT\nhello", true},
		{"s = <<EOT\nhello\nEOT\n", false},
		{":edit c1 x = {", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, incomplete(tc.src), "%q", tc.src)
	}
}
