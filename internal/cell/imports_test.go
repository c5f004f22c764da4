package cell

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImports(t *testing.T) {
	src := `
import "strings" {
  default   = "str"
  namespace = "s"
  names     = { up = "upper", low = "lower" }
}

import "math" {
  names = { pi = "pi" }
}
`
	defs, err := ParseImports([]byte(src), "decl.hcl")
	require.NoError(t, err)

	expected := []ImportDefinition{
		{
			Module:    "strings",
			Default:   "str",
			Namespace: "s",
			Named: []NamedBinding{
				{Imported: "lower", Local: "low"},
				{Imported: "upper", Local: "up"},
			},
		},
		{
			Module: "math",
			Named:  []NamedBinding{{Imported: "pi", Local: "pi"}},
		},
	}
	if diff := cmp.Diff(expected, defs); diff != "" {
		t.Errorf("ParseImports() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"str", "s", "low", "up"}, defs[0].LocalNames())
}

func TestParseImports_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "syntax error", src: `import "x" {`},
		{name: "stray attribute", src: `x = 1`},
		{name: "empty module", src: `import "" {}`},
		{name: "invalid local name", src: `import "m" { default = "not valid" }`},
		{name: "unknown argument", src: `import "m" { alias = "a" }`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseImports([]byte(tc.src), "decl.hcl")
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "expected a *ParseError, got %T", err)
		})
	}
}

func TestFormatImports_RoundTrip(t *testing.T) {
	defs := []ImportDefinition{
		{Module: "collections", Namespace: "c"},
		{
			Module:  "strings",
			Default: "str",
			Named:   []NamedBinding{{Imported: "upper", Local: "up"}},
		},
	}

	out := FormatImports(defs)
	parsed, err := ParseImports(out, "roundtrip.hcl")
	require.NoError(t, err)
	if diff := cmp.Diff(defs, parsed); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s\nrendered:\n%s", diff, out)
	}
}

func TestParseError_Positions(t *testing.T) {
	_, err := ParseImports([]byte("import \"m\" {\n  default = \n}"), "decl.hcl")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	require.NotEmpty(t, pe.Diagnostics)
	assert.NotZero(t, pe.Diagnostics[0].Line)
	assert.Contains(t, pe.Error(), "parse error:")
}
