// Package docfile reads and writes notebook documents. A document is an HCL
// file with one `cell` block per cell, in document order:
//
//	cell "code" {
//	  id     = "c1"
//	  source = <<EOT
//	x = 1
//	EOT
//	}
//
// The id attribute is optional; cells without one get a fresh id when loaded.
package docfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/cellid"
	"github.com/vk/notegrid/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// Extension is the file extension of notebook documents.
const Extension = ".nb.hcl"

// cellBlock is a single decoded cell block.
type cellBlock struct {
	Kind   string `hcl:"kind,label"`
	ID     string `hcl:"id,optional"`
	Source string `hcl:"source"`
}

// fileRoot is the root of a document file.
type fileRoot struct {
	Cells []*cellBlock `hcl:"cell,block"`
}

// Decode parses a document.
func Decode(src []byte, filename string) ([]cell.Cell, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse document %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode document %s: %w", filename, diags)
	}

	cells := make([]cell.Cell, 0, len(root.Cells))
	seen := make(map[cellid.ID]bool)
	for i, blk := range root.Cells {
		kind, ok := cell.ParseKind(blk.Kind)
		if !ok {
			return nil, fmt.Errorf("%s: cell %d has unknown kind %q", filename, i+1, blk.Kind)
		}
		c := cell.Cell{Kind: kind, Source: blk.Source}
		if blk.ID != "" {
			id, err := cellid.Parse(blk.ID)
			if err != nil {
				return nil, fmt.Errorf("%s: cell %d: %w", filename, i+1, err)
			}
			if seen[id] {
				return nil, fmt.Errorf("%s: duplicate cell id %s", filename, id)
			}
			seen[id] = true
			c.ID = id
		}
		cells = append(cells, c)
	}
	return cells, nil
}

// Encode renders cells as a canonical document. Multi-line sources are
// written as heredocs so that the file stays readable.
func Encode(cells []cell.Cell) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, c := range cells {
		if i > 0 {
			body.AppendNewline()
		}
		blk := body.AppendNewBlock("cell", []string{c.Kind.String()})
		if c.ID != cellid.None {
			blk.Body().SetAttributeValue("id", cty.StringVal(c.ID.String()))
		}
		if useHeredoc(c.Source) {
			blk.Body().SetAttributeRaw("source", heredocTokens(c.Source))
		} else {
			blk.Body().SetAttributeValue("source", cty.StringVal(c.Source))
		}
	}
	return hclwrite.Format(f.Bytes())
}

// Load reads the document at path.
func Load(ctx context.Context, path string) ([]cell.Cell, error) {
	logger := ctxlog.FromContext(ctx)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	cells, err := Decode(src, path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Document loaded.", "path", path, "cells", len(cells))
	return cells, nil
}

// Save writes cells to path, replacing the file atomically.
func Save(ctx context.Context, path string, cells []cell.Cell) error {
	logger := ctxlog.FromContext(ctx)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".notegrid-*")
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(Encode(cells)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	logger.Debug("Document saved.", "path", path, "cells", len(cells))
	return nil
}

// useHeredoc reports whether source can be written as a heredoc and read
// back unchanged: heredoc content always ends with a newline.
func useHeredoc(source string) bool {
	return strings.Count(source, "\n") > 1 && strings.HasSuffix(source, "\n") && !strings.Contains(source, "\r")
}

func heredocTokens(source string) hclwrite.Tokens {
	marker := heredocMarker(source)
	toks := hclwrite.Tokens{{Type: hclsyntax.TokenOHeredoc, Bytes: []byte("<<" + marker + "\n")}}
	for _, line := range strings.SplitAfter(source, "\n") {
		if line == "" {
			continue
		}
		toks = append(toks, &hclwrite.Token{Type: hclsyntax.TokenStringLit, Bytes: []byte(escapeTemplate(line))})
	}
	return append(toks, &hclwrite.Token{Type: hclsyntax.TokenCHeredoc, Bytes: []byte(marker)})
}

// heredocMarker picks a closing marker that no line of source can be
// mistaken for.
func heredocMarker(source string) string {
	lines := make(map[string]bool)
	for _, line := range strings.Split(source, "\n") {
		lines[strings.TrimSpace(line)] = true
	}
	marker := "EOT"
	for i := 1; lines[marker]; i++ {
		marker = fmt.Sprintf("EOT%d", i)
	}
	return marker
}

// escapeTemplate keeps template sequences in the source literal.
func escapeTemplate(s string) string {
	s = strings.ReplaceAll(s, "${", "$${")
	return strings.ReplaceAll(s, "%{", "%%{")
}
