package hclcell

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/notegrid/internal/cell"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Evaluate runs a code cell against the composed scope. The result holds one
// entry per attribute plus the rendered default export, if any.
func (d *Dialect) Evaluate(ctx context.Context, code string, scope cell.Record) (cell.Record, error) {
	d.mu.RLock()
	pc, err := d.parse(code, d.globals())
	if err != nil {
		d.mu.RUnlock()
		return nil, err
	}
	ectx, err := d.evalContext(pc, scope)
	d.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	result := make(cell.Record, len(pc.order)+1)
	for _, name := range pc.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		val, diags := pc.attrs[name].Expr.Value(ectx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("evaluating %s: %w", name, diags)
		}
		ectx.Variables[name] = val
		result[name] = val
	}

	if pc.render != nil {
		rendered, err := renderBody(pc.render, ectx)
		if err != nil {
			return nil, err
		}
		result[cell.DefaultExport] = rendered
	}
	return result, nil
}

// Render evaluates only the render block of a cell, using the cell's last
// result for its own attributes. It returns cty.NilVal when the cell has no
// render block.
func (d *Dialect) Render(ctx context.Context, code string, scope, result cell.Record) (cty.Value, error) {
	d.mu.RLock()
	pc, err := d.parse(code, d.globals())
	if err != nil {
		d.mu.RUnlock()
		return cty.NilVal, err
	}
	ectx, err := d.evalContext(pc, scope)
	d.mu.RUnlock()
	if err != nil {
		return cty.NilVal, err
	}
	if pc.render == nil {
		return cty.NilVal, nil
	}
	if err := ctx.Err(); err != nil {
		return cty.NilVal, err
	}
	for name, val := range result {
		if _, own := pc.attrs[name]; own {
			ectx.Variables[name] = val
		}
	}
	return renderBody(pc.render, ectx)
}

// evalContext binds the scope, the declarations and the cell's own imports.
// Callers hold d.mu.
func (d *Dialect) evalContext(pc *parsedCell, scope cell.Record) (*hcl.EvalContext, error) {
	ectx := &hcl.EvalContext{
		Variables: make(map[string]cty.Value, len(scope)),
		Functions: make(map[string]function.Function),
	}
	for k, v := range scope {
		if k == cell.DefaultExport {
			continue
		}
		ectx.Variables[k] = v
	}

	defs := append(append([]cell.ImportDefinition(nil), d.declarations...), pc.imports...)
	for _, def := range defs {
		if def.IsDocument() {
			for _, nb := range def.Named {
				v, ok := scope[nb.Imported]
				if !ok {
					return nil, fmt.Errorf("%s is not defined", nb.Imported)
				}
				ectx.Variables[nb.Local] = v
			}
			continue
		}

		mod, err := d.module(def.Module)
		if err != nil {
			return nil, err
		}
		if def.Default != "" {
			ectx.Variables[def.Default] = mod.Object()
		}
		if def.Namespace != "" {
			ectx.Variables[def.Namespace] = mod.Object()
			for name, fn := range mod.Functions {
				ectx.Functions[def.Namespace+"::"+name] = fn
			}
		}
		for _, nb := range def.Named {
			if fn, ok := mod.Functions[nb.Imported]; ok {
				ectx.Functions[nb.Local] = fn
				continue
			}
			if v, ok := mod.Values[nb.Imported]; ok {
				ectx.Variables[nb.Local] = v
				continue
			}
			return nil, fmt.Errorf("module %q has no member %q", def.Module, nb.Imported)
		}
	}
	return ectx, nil
}

func renderBody(body *hclsyntax.Body, ectx *hcl.EvalContext) (cty.Value, error) {
	if len(body.Attributes) == 0 {
		return cty.EmptyObjectVal, nil
	}
	vals := make(map[string]cty.Value, len(body.Attributes))
	for _, name := range cell.SortedKeys(body.Attributes) {
		val, diags := body.Attributes[name].Expr.Value(ectx)
		if diags.HasErrors() {
			return cty.NilVal, fmt.Errorf("rendering %s: %w", name, diags)
		}
		vals[name] = val
	}
	return cty.ObjectVal(vals), nil
}
