package cell

import (
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Import statements are written as HCL blocks:
//
//	import "strings" {
//	  default   = "str"
//	  namespace = "s"
//	  names     = { up = "upper" }
//	}
//
// The keys of `names` are local names, the values the names imported from the
// module.

// importBody is the decoded content of a single import block.
type importBody struct {
	Default   string            `hcl:"default,optional"`
	Namespace string            `hcl:"namespace,optional"`
	Names     map[string]string `hcl:"names,optional"`
}

// importBlock is an import block together with its module label. The body is
// decoded separately so that code cells can reuse DecodeImportBlock.
type importBlock struct {
	Module string   `hcl:"module,label"`
	Body   hcl.Body `hcl:",remain"`
}

// importFile is the root of a declaration cell; it may only contain imports.
type importFile struct {
	Imports []*importBlock `hcl:"import,block"`
}

// ParseImports decodes the import statements of a declaration cell.
func ParseImports(src []byte, filename string) ([]ImportDefinition, error) {
	file, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, NewParseError(diags)
	}

	var root importFile
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, NewParseError(diags)
	}

	defs := make([]ImportDefinition, 0, len(root.Imports))
	for _, blk := range root.Imports {
		def, err := DecodeImportBlock(blk.Module, blk.Body)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// DecodeImportBlock decodes the body of one `import "<module>" { ... }` block.
func DecodeImportBlock(module string, body hcl.Body) (ImportDefinition, error) {
	var ib importBody
	if diags := gohcl.DecodeBody(body, nil, &ib); diags.HasErrors() {
		return ImportDefinition{}, NewParseError(diags)
	}
	return newImportDefinition(module, ib)
}

func newImportDefinition(module string, ib importBody) (ImportDefinition, error) {
	if module == "" {
		return ImportDefinition{}, Parsef("import statement has an empty module specifier")
	}
	def := ImportDefinition{
		Module:    module,
		Default:   ib.Default,
		Namespace: ib.Namespace,
	}
	for local, imported := range ib.Names {
		def.Named = append(def.Named, NamedBinding{Imported: imported, Local: local})
	}
	sort.Slice(def.Named, func(i, j int) bool { return def.Named[i].Local < def.Named[j].Local })

	for _, name := range def.LocalNames() {
		if !hclsyntax.ValidIdentifier(name) {
			return ImportDefinition{}, Parsef("import from %q binds invalid name %q", module, name)
		}
	}
	for _, name := range def.ImportedNames() {
		if !hclsyntax.ValidIdentifier(name) {
			return ImportDefinition{}, Parsef("import from %q names invalid binding %q", module, name)
		}
	}
	return def, nil
}

// FormatImports renders import definitions back into canonical HCL.
func FormatImports(defs []ImportDefinition) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, d := range defs {
		if i > 0 {
			body.AppendNewline()
		}
		b := body.AppendNewBlock("import", []string{d.Module}).Body()
		if d.Default != "" {
			b.SetAttributeValue("default", cty.StringVal(d.Default))
		}
		if d.Namespace != "" {
			b.SetAttributeValue("namespace", cty.StringVal(d.Namespace))
		}
		if len(d.Named) > 0 {
			names := make(map[string]cty.Value, len(d.Named))
			for _, nb := range d.Named {
				names[nb.Local] = cty.StringVal(nb.Imported)
			}
			b.SetAttributeValue("names", cty.ObjectVal(names))
		}
	}
	return hclwrite.Format(f.Bytes())
}

// String renders the statement as a single import block.
func (d ImportDefinition) String() string {
	return string(FormatImports([]ImportDefinition{d}))
}
