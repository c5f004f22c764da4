/*
Package hclcell implements the transpiler, static-analysis and evaluator
collaborators for notebook cells written in HCL.

# Cell Dialect

A code cell is an HCL body:

	import "strings" {
	  names = { up = "upper", strlen = "strlen" }
	}

	greeting = up("hello ${name}")
	length   = strlen(greeting)

	render {
	  title = greeting
	}

Top-level attributes are the cell's named exports. Root variables that are
neither attributes of the same cell nor bound by an import (of the cell or of
a declaration cell) are imports from the rest of the document. Attributes may
reference each other; they are evaluated in dependency order and a reference
cycle inside one cell is an analysis failure.

The optional `render` block is the cell's default export. The document names
it reads are its render parameters: a change to any of them only requires the
cell to render again.

# Modules

External modules are collections of go-cty functions and values. A named
import binds a function or value under a local name. A namespace import binds
functions as `ns::fn` and values as attributes of the object `ns`. A default
import binds the object of the module's values.
*/
package hclcell
