// Package testdump builds BOUT++ style dump files in memory, as HDF5 or as
// NetCDF classic, so readers can be tested against files with known content
// and a known storage layout.
package testdump

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Attr is a named attribute value: an int, a float64 or a string.
type Attr struct {
	Name  string
	Value any
}

// Var is one variable of a dump.
type Var struct {
	Name  string
	Dims  []string
	Shape []int
	// Data holds the values in row-major order.
	Data []float64
	// Int stores Data as 32-bit integers.
	Int bool
	// Text makes the variable a string; Dims, Shape and Data are ignored.
	Text  string
	Attrs []Attr
}

// Dump is the content of one dump file.
type Dump struct {
	Vars  []Var
	Attrs []Attr
}

// Add appends variables and returns d.
func (d *Dump) Add(vars ...Var) *Dump {
	d.Vars = append(d.Vars, vars...)
	return d
}

// Scalar is a float variable without dimensions.
func Scalar(name string, v float64) Var {
	return Var{Name: name, Data: []float64{v}}
}

// IntScalar is an integer variable without dimensions.
func IntScalar(name string, v int) Var {
	return Var{Name: name, Data: []float64{float64(v)}, Int: true}
}

// Text is a string variable.
func Text(name, s string) Var {
	return Var{Name: name, Text: s}
}

// Field fills a variable over the named dimensions by calling fn with each
// index. The BOUT++ bout_type attribute is derived from the dimension names.
func Field(name string, dims []string, shape []int, fn func(idx []int) float64) Var {
	n := 1
	for _, s := range shape {
		n *= s
	}
	v := Var{Name: name, Dims: dims, Shape: shape, Data: make([]float64, n)}
	idx := make([]int, len(shape))
	for i := range v.Data {
		v.Data[i] = fn(idx)
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
	if bt := BoutType(dims); bt != "" {
		v.Attrs = append(v.Attrs, Attr{Name: "bout_type", Value: bt})
	}
	return v
}

// BoutType returns the BOUT++ type name for a dimension list, or "" when
// the dimensions are not a BOUT++ field.
func BoutType(dims []string) string {
	key := strings.Join(dims, ",")
	switch key {
	case "":
		return "scalar"
	case "t":
		return "scalar_t"
	}
	base := map[string]string{"x,y,z": "Field3D", "x,y": "Field2D", "x,z": "FieldPerp"}
	if t, ok := base[key]; ok {
		return t
	}
	if strings.HasPrefix(key, "t,") {
		if t, ok := base[key[2:]]; ok {
			return t + "_t"
		}
	}
	return ""
}

func (v *Var) size() int {
	n := 1
	for _, s := range v.Shape {
		n *= s
	}
	return n
}

func (d *Dump) validate() error {
	lens := map[string]int{}
	for _, v := range d.Vars {
		if v.Text != "" {
			continue
		}
		if len(v.Dims) != len(v.Shape) {
			return fmt.Errorf("variable %q: %d dims for %d axes", v.Name, len(v.Dims), len(v.Shape))
		}
		if len(v.Data) != v.size() {
			return fmt.Errorf("variable %q: %d values for shape %v", v.Name, len(v.Data), v.Shape)
		}
		for i, name := range v.Dims {
			if n, ok := lens[name]; ok && n != v.Shape[i] {
				return fmt.Errorf("dimension %q is %d and %d", name, n, v.Shape[i])
			}
			lens[name] = v.Shape[i]
		}
	}
	return nil
}

// dimensions lists the dimensions in order of first use.
func (d *Dump) dimensions() (names []string, lens map[string]int) {
	lens = map[string]int{}
	for _, v := range d.Vars {
		for i, name := range v.Dims {
			if _, ok := lens[name]; !ok {
				names = append(names, name)
				lens[name] = v.Shape[i]
			}
		}
	}
	return names, lens
}

// WriteFile encodes d by the file extension: .nc, .ncdf and .cdl as NetCDF
// classic (CDF-2) unless opts asks for NetCDF-4, anything else as HDF5.
func (d *Dump) WriteFile(path string, opts HDF5Options) error {
	var (
		data []byte
		err  error
	)
	switch filepath.Ext(path) {
	case ".nc", ".ncdf", ".cdl":
		if opts.NetCDF4 {
			data, err = d.HDF5(opts)
		} else {
			data, err = d.CDF(2)
		}
	default:
		data, err = d.HDF5(opts)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
