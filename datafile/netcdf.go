package datafile

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/robert-malhotra/go-boutdata/internal/cdf"
)

type cdfFile struct {
	file *cdf.File
}

func openCDF(path string) (*cdfFile, error) {
	f, err := cdf.Open(path)
	if err != nil {
		return nil, err
	}
	return &cdfFile{file: f}, nil
}

func (c *cdfFile) Path() string { return c.file.Path() }

func (c *cdfFile) Names() []string {
	names := make([]string, len(c.file.Vars))
	for i, v := range c.file.Vars {
		names[i] = v.Name
	}
	return names
}

func (c *cdfFile) variable(name string) (*cdf.Variable, error) {
	v, ok := c.file.Var(name)
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", c.Path(), name, ErrNotPresent)
	}
	return v, nil
}

func (c *cdfFile) Dimensions(name string) ([]string, error) {
	v, err := c.variable(name)
	if err != nil {
		return nil, err
	}
	return c.file.DimNames(v), nil
}

func (c *cdfFile) Attributes(name string) (map[string]any, error) {
	v, err := c.variable(name)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(v.Attrs))
	for _, a := range v.Attrs {
		out[a.Name] = unwrap(a.Values)
	}
	return out, nil
}

func (c *cdfFile) ReadScalar(name string) (float64, error) {
	v, err := c.variable(name)
	if err != nil {
		return 0, err
	}
	shape, err := c.shape(v)
	if err != nil {
		return 0, err
	}
	if v.Type == cdf.Char || product(shape) != 1 {
		return 0, fmt.Errorf("%s: %q is %s of shape %v: %w", c.Path(), name, v.Type, shape, ErrWrongType)
	}
	vals, err := c.file.ReadSlab(v, nil, nil, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", c.Path(), err)
	}
	return vals[0], nil
}

func (c *cdfFile) Shape(name string) ([]int, error) {
	v, err := c.variable(name)
	if err != nil {
		return nil, err
	}
	return c.shape(v)
}

func (c *cdfFile) shape(v *cdf.Variable) ([]int, error) {
	dims := c.file.Shape(v)
	shape := make([]int, len(dims))
	for i, d := range dims {
		n, err := safecast.Conv[int](d)
		if err != nil {
			return nil, fmt.Errorf("variable %q: dimension %d: %w", v.Name, i, err)
		}
		shape[i] = n
	}
	return shape, nil
}

func (c *cdfFile) Read(name string, ranges []*Slice) (*Array, error) {
	v, err := c.variable(name)
	if err != nil {
		return nil, err
	}
	shape, err := c.shape(v)
	if err != nil {
		return nil, err
	}
	if v.Type == cdf.Char {
		strs, err := c.file.ReadText(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Path(), err)
		}
		if len(shape) > 0 {
			shape = shape[:len(shape)-1]
		}
		return &Array{DType: "string", Shape: shape, Strings: strs}, nil
	}

	start, count, stride, out, empty, err := selection(shape, ranges)
	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", c.Path(), name, err)
	}
	arr := &Array{DType: v.Type.String(), Shape: out}
	if empty {
		arr.Data = []float64{}
		return arr, nil
	}
	arr.Data, err = c.file.ReadSlab(v, start, count, stride)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.Path(), err)
	}
	return arr, nil
}

func (c *cdfFile) Close() error { return c.file.Close() }
