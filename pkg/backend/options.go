package backend

import (
	"strconv"
	"strings"
)

// DefineType is the type of a compile-time constant.
type DefineType int

const (
	IntType DefineType = iota + 1
	FloatType
)

// Define is one compile-time constant.
type Define struct {
	Name  string
	Type  DefineType
	Int   int
	Float float32
}

// IntDefine returns an integer constant.
func IntDefine(name string, v int) Define {
	return Define{Name: name, Type: IntType, Int: v}
}

// FloatDefine returns a float constant.
func FloatDefine(name string, v float32) Define {
	return Define{Name: name, Type: FloatType, Float: v}
}

// Value renders the constant value as a literal.
func (d Define) Value() string {
	if d.Type == FloatType {
		s := strconv.FormatFloat(float64(d.Float), 'f', -1, 32)
		if !strings.Contains(s, ".") {
			s += ".0"
		}

		return s
	}

	return strconv.Itoa(d.Int)
}

// CompileOptions is an ordered list of compile-time constants.
type CompileOptions []Define

// Lookup returns the constant called name.
func (o CompileOptions) Lookup(name string) (Define, bool) {
	for _, d := range o {
		if d.Name == name {
			return d, true
		}
	}

	return Define{}, false
}

// String renders the options as preprocessor flags, "-D NAME=value ...".
func (o CompileOptions) String() string {
	parts := make([]string, 0, len(o))
	for _, d := range o {
		parts = append(parts, "-D "+d.Name+"="+d.Value())
	}

	return strings.Join(parts, " ")
}

// WGSLConstants renders the options as WGSL module constants.
func (o CompileOptions) WGSLConstants() string {
	var sb strings.Builder
	for _, d := range o {
		typ := "i32"
		if d.Type == FloatType {
			typ = "f32"
		}
		sb.WriteString("const " + d.Name + ": " + typ + " = " + d.Value() + ";\n")
	}

	return sb.String()
}
