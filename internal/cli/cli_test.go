package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/docfile"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	err := Execute(context.Background(), args, out, logs)
	return out.String(), err
}

func requireExitCode(t *testing.T, err error, code int) *ExitError {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "want *ExitError, got %v", err)
	assert.Equal(t, code, exitErr.Code)
	return exitErr
}

func TestExecute_Help(t *testing.T) {
	out, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	for _, name := range []string{"run", "serve", "watch", "repl", "fmt"} {
		assert.Contains(t, out, name)
	}
}

func TestExecute_UsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown flag", args: []string{"--nope"}, want: "unknown flag: --nope"},
		{name: "missing document", args: []string{"run"}, want: "accepts 1 arg(s), received 0"},
		{name: "bad log level", args: []string{"run", "--log-level", "loud", "doc.nb.hcl"}, want: "invalid log-level"},
		{name: "bad log format", args: []string{"serve", "--log-format", "xml"}, want: "invalid log-format"},
		{name: "fmt without paths", args: []string{"fmt"}, want: "requires at least 1 arg(s)"},
		{name: "conflicting fmt flags", args: []string{"fmt", "-w", "--check", "x"}, want: "mutually exclusive"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			exitErr := requireExitCode(t, err, 2)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

func TestExecute_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc"+docfile.Extension)
	require.NoError(t, os.WriteFile(path, docfile.Encode([]cell.Cell{
		{Kind: cell.Code, Source: "a = 2\n"},
		{Kind: cell.Code, Source: "b = a * 3\n"},
	}), 0o600))

	out, err := execute(t, "run", "--log-level", "error", path)
	require.NoError(t, err)
	assert.Equal(t, "c1 live step=1\n  a = 2\nc2 live step=2\n  b = 6\n", out)
}

func TestExecute_Fmt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc"+docfile.Extension)
	messy := "cell \"code\" {\nsource=\"x = 1\"\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(messy), 0o600))
	canonical := "cell \"code\" {\n  source = \"x = 1\"\n}\n"

	out, err := execute(t, "fmt", path)
	require.NoError(t, err)
	assert.Equal(t, canonical, out)

	out, err = execute(t, "fmt", "--check", dir)
	requireExitCode(t, err, 1)
	assert.Equal(t, path+"\n", out)

	_, err = execute(t, "fmt", "-w", dir)
	require.NoError(t, err)
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, canonical, string(written))

	out, err = execute(t, "fmt", "--check", path)
	require.NoError(t, err)
	assert.Empty(t, out)
}
