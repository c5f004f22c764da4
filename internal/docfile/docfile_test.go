package docfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/notegrid/internal/cell"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cells := []cell.Cell{
		{ID: "c1", Kind: cell.Prose, Source: "# Title"},
		{ID: "c2", Kind: cell.Declaration, Source: "import \"math\" {\n  default = \"m\"\n}\n"},
		{ID: "c3", Kind: cell.Code, Source: "x = 1\n"},
		{Kind: cell.Code, Source: "greeting = \"hi ${name}\"\nrender {\n  text = \"%{if true}yes%{endif}\"\n}\n"},
		{ID: "c9", Kind: cell.Code, Source: "a = 1\nEOT\nb = 2\n"},
		{ID: "c10", Kind: cell.Code, Source: ""},
	}

	encoded := Encode(cells)
	decoded, err := Decode(encoded, "test.nb.hcl")
	require.NoError(t, err, "encoded document:\n%s", encoded)

	if diff := cmp.Diff(cells, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s\nencoded:\n%s", diff, encoded)
	}
}

func TestEncode_IsCanonical(t *testing.T) {
	cells := []cell.Cell{
		{ID: "c1", Kind: cell.Code, Source: "x = 1\ny = 2\n"},
	}

	want := "cell \"code\" {\n  id     = \"c1\"\n  source = <<EOT\nx = 1\ny = 2\nEOT\n}\n"
	assert.Equal(t, want, string(Encode(cells)))
}

func TestDecode_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "syntax", src: "cell \"code\" {"},
		{name: "unknown kind", src: "cell \"shell\" {\n  source = \"\"\n}\n"},
		{name: "missing source", src: "cell \"code\" {\n}\n"},
		{name: "bad id", src: "cell \"code\" {\n  id = \"x1\"\n  source = \"\"\n}\n"},
		{name: "duplicate id", src: "cell \"code\" {\n  id = \"c1\"\n  source = \"\"\n}\ncell \"code\" {\n  id = \"c1\"\n  source = \"\"\n}\n"},
		{name: "unexpected attribute", src: "title = \"x\"\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.src), "bad.nb.hcl")
			assert.Error(t, err)
		})
	}
}

func TestLoadSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "doc"+Extension)
	cells := []cell.Cell{
		{ID: "c1", Kind: cell.Code, Source: "x = 1\n"},
		{ID: "c2", Kind: cell.Code, Source: "y = x\nz = y\n"},
	}

	require.NoError(t, Save(ctx, path, cells))
	loaded, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, cells, loaded)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	_, err = Load(ctx, filepath.Join(t.TempDir(), "missing"+Extension))
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"a" + Extension, "notes.txt", "sub/b" + Extension, ".hidden/c" + Extension} {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o600))
	}

	got, err := Find(root)
	require.NoError(t, err)
	want := []string{filepath.Join(root, "a"+Extension), filepath.Join(root, "sub", "b"+Extension)}
	assert.Empty(t, cmp.Diff(want, got))

	single, err := Find(filepath.Join(root, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "notes.txt")}, single)

	_, err = Find(filepath.Join(root, "missing"))
	assert.Error(t, err)
}
