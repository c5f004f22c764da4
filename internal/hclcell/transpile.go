package hclcell

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/notegrid/internal/cell"
)

// Transpile checks that source is valid HCL and returns it in canonical
// formatting.
func (d *Dialect) Transpile(source string) (string, error) {
	if _, diags := hclsyntax.ParseConfig([]byte(source), filename, hcl.InitialPos); diags.HasErrors() {
		return "", cell.NewParseError(diags)
	}
	return string(hclwrite.Format([]byte(source))), nil
}
