package collect

import (
	"fmt"
	"slices"
	"strings"
)

// Dims is the dimension layout of a variable.
type Dims int

const (
	DimsNone Dims = iota // ()
	DimsT                // (t)
	DimsXY               // (x, y): Field2D
	DimsXZ               // (x, z): FieldPerp
	DimsTXY              // (t, x, y)
	DimsTXZ              // (t, x, z)
	DimsXYZ              // (x, y, z): Field3D
	DimsTXYZ             // (t, x, y, z)

	// DimsOther is any other layout, such as text or auxiliary
	// dimensions. These variables are never sliced or decomposed.
	DimsOther
)

var dimsNames = map[string]Dims{
	"":        DimsNone,
	"t":       DimsT,
	"x,y":     DimsXY,
	"x,z":     DimsXZ,
	"t,x,y":   DimsTXY,
	"t,x,z":   DimsTXZ,
	"x,y,z":   DimsXYZ,
	"t,x,y,z": DimsTXYZ,
}

// ParseDims classifies a variable's dimension names. More than four
// dimensions, or a t dimension that is not first, is an error.
func ParseDims(names []string) (Dims, error) {
	if len(names) > 4 {
		return DimsOther, fmt.Errorf("%w: %d dimensions %v", ErrDimensionality, len(names), names)
	}
	if i := slices.Index(names, "t"); i > 0 {
		return DimsOther, fmt.Errorf("%w: t is not the first dimension in %v", ErrDimensionality, names)
	}
	if d, ok := dimsNames[strings.Join(names, ",")]; ok {
		return d, nil
	}
	return DimsOther, nil
}

// Names returns the dimension names, nil for DimsOther.
func (d Dims) Names() []string {
	switch d {
	case DimsNone:
		return []string{}
	case DimsT:
		return []string{"t"}
	case DimsXY:
		return []string{"x", "y"}
	case DimsXZ:
		return []string{"x", "z"}
	case DimsTXY:
		return []string{"t", "x", "y"}
	case DimsTXZ:
		return []string{"t", "x", "z"}
	case DimsXYZ:
		return []string{"x", "y", "z"}
	case DimsTXYZ:
		return []string{"t", "x", "y", "z"}
	}
	return nil
}

func (d Dims) String() string {
	if d == DimsOther {
		return "other"
	}
	return "(" + strings.Join(d.Names(), ", ") + ")"
}

func (d Dims) has(axis string) bool { return slices.Contains(d.Names(), axis) }

// HasT reports whether the layout has a time dimension.
func (d Dims) HasT() bool { return d.has("t") }

// IsSpatial reports whether the layout has an x, y or z dimension.
func (d Dims) IsSpatial() bool { return d.has("x") || d.has("y") || d.has("z") }

// IsFieldPerp reports whether the variable lives on a single y-plane.
func (d Dims) IsFieldPerp() bool { return d == DimsXZ || d == DimsTXZ }
