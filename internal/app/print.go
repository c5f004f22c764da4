package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/notegrid/internal/cell"
	"github.com/vk/notegrid/internal/notebook"
	"github.com/zclconf/go-cty/cty"
)

// writeSnapshot prints every code cell of snap and returns how many of them
// carry an error.
func writeSnapshot(w io.Writer, snap notebook.Snapshot) int {
	failed := 0
	for _, v := range snap.Cells {
		if v.Kind != cell.Code {
			if v.Err != nil {
				failed++
				fmt.Fprintf(w, "%s %s\n  error: %s\n", v.ID, v.Kind, indent(v.Err.Error()))
			}
			continue
		}
		if writeCell(w, v) {
			failed++
		}
	}
	return failed
}

// writeCell prints one code cell, reporting whether it has an error.
func writeCell(w io.Writer, v notebook.CellView) bool {
	fmt.Fprintf(w, "%s %s step=%d\n", v.ID, v.Status, v.Step)
	if v.Err != nil {
		fmt.Fprintf(w, "  error: %s\n", indent(v.Err.Error()))
	}
	for _, k := range v.Result.Keys() {
		name := k
		if k == cell.DefaultExport {
			name = "render"
		}
		fmt.Fprintf(w, "  %s = %s\n", name, indent(formatValue(v.Result[k])))
	}
	return v.Err != nil
}

func formatValue(v cty.Value) string {
	if !v.IsWhollyKnown() {
		return "(known after evaluation)"
	}
	return strings.TrimSpace(string(hclwrite.TokensForValue(v).Bytes()))
}

func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n  ")
}
