package hclcell

import (
	"math"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Module is an importable collection of functions and values.
type Module struct {
	Name      string
	Functions map[string]function.Function
	Values    map[string]cty.Value
}

// Has reports whether the module exports name as a function or a value.
func (m *Module) Has(name string) bool {
	if _, ok := m.Functions[name]; ok {
		return true
	}
	_, ok := m.Values[name]
	return ok
}

// Object returns the module's values as a cty object.
func (m *Module) Object() cty.Value {
	if len(m.Values) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(m.Values)
}

// Builtins returns the modules every dialect starts with.
func Builtins() []*Module {
	return []*Module{
		{
			Name: "strings",
			Functions: map[string]function.Function{
				"upper":      stdlib.UpperFunc,
				"lower":      stdlib.LowerFunc,
				"title":      stdlib.TitleFunc,
				"strlen":     stdlib.StrlenFunc,
				"substr":     stdlib.SubstrFunc,
				"join":       stdlib.JoinFunc,
				"split":      stdlib.SplitFunc,
				"trim":       stdlib.TrimFunc,
				"trimspace":  stdlib.TrimSpaceFunc,
				"trimprefix": stdlib.TrimPrefixFunc,
				"trimsuffix": stdlib.TrimSuffixFunc,
				"format":     stdlib.FormatFunc,
				"replace":    stdlib.ReplaceFunc,
				"regex":      stdlib.RegexFunc,
				"indent":     stdlib.IndentFunc,
			},
			Values: map[string]cty.Value{
				"newline": cty.StringVal("\n"),
			},
		},
		{
			Name: "math",
			Functions: map[string]function.Function{
				"abs":      stdlib.AbsoluteFunc,
				"ceil":     stdlib.CeilFunc,
				"floor":    stdlib.FloorFunc,
				"max":      stdlib.MaxFunc,
				"min":      stdlib.MinFunc,
				"pow":      stdlib.PowFunc,
				"log":      stdlib.LogFunc,
				"signum":   stdlib.SignumFunc,
				"parseint": stdlib.ParseIntFunc,
				"int":      stdlib.IntFunc,
			},
			Values: map[string]cty.Value{
				"pi": cty.NumberFloatVal(math.Pi),
				"e":  cty.NumberFloatVal(math.E),
			},
		},
		{
			Name: "collections",
			Functions: map[string]function.Function{
				"length":   stdlib.LengthFunc,
				"concat":   stdlib.ConcatFunc,
				"contains": stdlib.ContainsFunc,
				"distinct": stdlib.DistinctFunc,
				"element":  stdlib.ElementFunc,
				"flatten":  stdlib.FlattenFunc,
				"keys":     stdlib.KeysFunc,
				"values":   stdlib.ValuesFunc,
				"lookup":   stdlib.LookupFunc,
				"merge":    stdlib.MergeFunc,
				"range":    stdlib.RangeFunc,
				"reverse":  stdlib.ReverseListFunc,
				"slice":    stdlib.SliceFunc,
				"sort":     stdlib.SortFunc,
				"zipmap":   stdlib.ZipmapFunc,
			},
		},
		{
			Name: "encoding",
			Functions: map[string]function.Function{
				"jsonencode": stdlib.JSONEncodeFunc,
				"jsondecode": stdlib.JSONDecodeFunc,
				"csvdecode":  stdlib.CSVDecodeFunc,
			},
		},
	}
}
