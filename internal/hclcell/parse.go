package hclcell

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/notegrid/internal/cell"
)

const (
	blockImport = "import"
	blockRender = "render"
	filename    = "cell.hcl"
)

// parsedCell is the syntactic structure of one code cell.
type parsedCell struct {
	attrs map[string]*hclsyntax.Attribute
	// order lists the attributes so that each comes after the attributes it
	// references.
	order   []string
	imports []cell.ImportDefinition
	render  *hclsyntax.Body
	// free holds referenced names bound nowhere in the cell.
	free []string
	// params holds the document names the render block reads.
	params []string
}

// parse parses code and resolves its references against bound, the names
// declared outside the cell. Callers hold d.mu.
func (d *Dialect) parse(code string, bound map[string]struct{}) (*parsedCell, error) {
	file, diags := hclsyntax.ParseConfig([]byte(code), filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, cell.NewParseError(diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, cell.Parsef("unexpected body type %T", file.Body)
	}

	pc := &parsedCell{attrs: body.Attributes}
	locals := make(map[string]struct{}, len(bound))
	for name := range bound {
		locals[name] = struct{}{}
	}

	for _, blk := range body.Blocks {
		switch blk.Type {
		case blockImport:
			if len(blk.Labels) != 1 {
				return nil, blockError(blk, "An import block needs exactly one label, the module specifier.")
			}
			def, err := cell.DecodeImportBlock(blk.Labels[0], blk.Body)
			if err != nil {
				return nil, err
			}
			if err := d.checkImport(def); err != nil {
				return nil, err
			}
			pc.imports = append(pc.imports, def)
			for _, name := range def.LocalNames() {
				locals[name] = struct{}{}
			}
		case blockRender:
			if len(blk.Labels) != 0 {
				return nil, blockError(blk, "A render block takes no labels.")
			}
			if pc.render != nil {
				return nil, blockError(blk, "A cell has at most one render block.")
			}
			if len(blk.Body.Blocks) > 0 {
				return nil, blockError(blk.Body.Blocks[0], "A render block may only contain attributes.")
			}
			pc.render = blk.Body
		default:
			return nil, blockError(blk, fmt.Sprintf("Blocks of type %q are not supported in a cell.", blk.Type))
		}
	}

	free := make(map[string]struct{})
	deps := make(map[string][]string, len(pc.attrs))
	for _, name := range cell.SortedKeys(pc.attrs) {
		for _, ref := range rootNames(pc.attrs[name].Expr) {
			if _, own := pc.attrs[ref]; own {
				deps[name] = append(deps[name], ref)
				continue
			}
			if _, isLocal := locals[ref]; !isLocal {
				free[ref] = struct{}{}
			}
		}
	}
	order, err := evaluationOrder(pc.attrs, deps)
	if err != nil {
		return nil, err
	}
	pc.order = order
	pc.free = cell.SortedKeys(free)

	if pc.render != nil {
		params := make(map[string]struct{})
		for _, attr := range pc.render.Attributes {
			for _, ref := range rootNames(attr.Expr) {
				_, own := pc.attrs[ref]
				_, isLocal := locals[ref]
				if !own && !isLocal {
					params[ref] = struct{}{}
				}
			}
		}
		pc.params = cell.SortedKeys(params)
	}
	return pc, nil
}

// rootNames returns the sorted, unique root variable names of expr.
func rootNames(expr hclsyntax.Expression) []string {
	seen := make(map[string]struct{})
	for _, traversal := range hclsyntax.Variables(expr) {
		seen[traversal.RootName()] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// evaluationOrder sorts attributes topologically. Ties are broken by name so
// the order is deterministic.
func evaluationOrder(attrs map[string]*hclsyntax.Attribute, deps map[string][]string) ([]string, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(attrs))
	order := make([]string, 0, len(attrs))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			attr := attrs[name]
			return cell.NewParseError(hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Self-referencing attribute",
				Detail:   fmt.Sprintf("Attribute %q depends on itself through %v.", name, append(path, name)),
				Subject:  attr.NameRange.Ptr(),
			}})
		}
		state[name] = visiting
		for _, dep := range deps[name] {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range cell.SortedKeys(attrs) {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func blockError(blk *hclsyntax.Block, detail string) error {
	return cell.NewParseError(hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Unsupported block",
		Detail:   detail,
		Subject:  blk.TypeRange.Ptr(),
	}})
}
