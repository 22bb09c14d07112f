package datafile

import (
	"errors"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"github.com/robert-malhotra/go-boutdata/hdf5"
)

// netcdfDimPrefix starts the NAME attribute of a NetCDF-4 dimension that
// has no coordinate variable.
const netcdfDimPrefix = "This is a netCDF dimension but not a netCDF variable."

// reservedAttrs are bookkeeping attributes written by the HDF5 dimension
// scale API and the NetCDF-4 library.
var reservedAttrs = map[string]bool{
	"CLASS":               true,
	"NAME":                true,
	"DIMENSION_LIST":      true,
	"REFERENCE_LIST":      true,
	"_Netcdf4Dimid":       true,
	"_Netcdf4Coordinates": true,
	"_nc3_strict":         true,
	"_NCProperties":       true,
}

// boutTypes maps the BOUT++ bout_type attribute to dimension names.
var boutTypes = map[string][]string{
	"scalar":      {},
	"scalar_t":    {"t"},
	"Field2D":     {"x", "y"},
	"Field2D_t":   {"t", "x", "y"},
	"Field3D":     {"x", "y", "z"},
	"Field3D_t":   {"t", "x", "y", "z"},
	"FieldPerp":   {"x", "z"},
	"FieldPerp_t": {"t", "x", "z"},
}

type h5File struct {
	file     *hdf5.File
	names    []string
	datasets map[string]*hdf5.Dataset
}

func openHDF5(path string) (*h5File, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	h := &h5File{file: f, datasets: map[string]*hdf5.Dataset{}}
	members, err := f.Root().Members()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, name := range members {
		obj, err := f.Root().Object(name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		ds, ok := obj.(*hdf5.Dataset)
		if !ok || hiddenDimension(ds) {
			continue
		}
		h.names = append(h.names, name)
		h.datasets[name] = ds
	}
	return h, nil
}

func hiddenDimension(ds *hdf5.Dataset) bool {
	if !ds.IsDimensionScale() {
		return false
	}
	a, err := ds.Attr("NAME")
	if err != nil {
		return false
	}
	v, err := a.Value()
	if err != nil {
		return false
	}
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, netcdfDimPrefix)
}

func (h *h5File) Path() string { return h.file.Path() }

func (h *h5File) Names() []string { return append([]string(nil), h.names...) }

func (h *h5File) dataset(name string) (*hdf5.Dataset, error) {
	ds, ok := h.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", h.Path(), name, ErrNotPresent)
	}
	return ds, nil
}

// Dimensions prefers the NetCDF-4 dimension list, then the BOUT++ type
// attribute, and finally guesses from the rank.
func (h *h5File) Dimensions(name string) ([]string, error) {
	ds, err := h.dataset(name)
	if err != nil {
		return nil, err
	}
	dims, err := ds.DimensionNames()
	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", h.Path(), name, err)
	}
	if dims != nil {
		return dims, nil
	}
	if a, err := ds.Attr("bout_type"); err == nil {
		if v, err := a.Value(); err == nil {
			if s, ok := unwrap(v).(string); ok {
				if dims, ok := boutTypes[s]; ok {
					return append([]string{}, dims...), nil
				}
			}
		}
	}
	return rankDimensions(ds.Rank()), nil
}

func rankDimensions(rank int) []string {
	switch rank {
	case 0:
		return []string{}
	case 1:
		return []string{"t"}
	case 2:
		return []string{"x", "y"}
	case 3:
		return []string{"x", "y", "z"}
	case 4:
		return []string{"t", "x", "y", "z"}
	}
	dims := make([]string, rank)
	for i := range dims {
		dims[i] = fmt.Sprintf("dim_%d", i)
	}
	return dims
}

func (h *h5File) Attributes(name string) (map[string]any, error) {
	ds, err := h.dataset(name)
	if err != nil {
		return nil, err
	}
	attrs, err := ds.Attrs()
	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", h.Path(), name, err)
	}
	out := make(map[string]any, len(attrs))
	for _, a := range attrs {
		if reservedAttrs[a.Name()] {
			continue
		}
		v, err := a.Value()
		if errors.Is(err, hdf5.ErrUnsupported) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %q: attribute %q: %w", h.Path(), name, a.Name(), err)
		}
		out[a.Name()] = unwrap(v)
	}
	return out, nil
}

func (h *h5File) ReadScalar(name string) (float64, error) {
	ds, err := h.dataset(name)
	if err != nil {
		return 0, err
	}
	if ds.IsString() || ds.NumElements() != 1 {
		return 0, fmt.Errorf("%s: %q is %s with %d elements: %w", h.Path(), name, ds.DType(), ds.NumElements(), ErrWrongType)
	}
	vals, err := ds.ReadFloat64()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", h.Path(), err)
	}
	return vals[0], nil
}

func (h *h5File) Shape(name string) ([]int, error) {
	ds, err := h.dataset(name)
	if err != nil {
		return nil, err
	}
	return shapeOf(ds)
}

func shapeOf(ds *hdf5.Dataset) ([]int, error) {
	dims := ds.Shape()
	shape := make([]int, len(dims))
	for i, d := range dims {
		n, err := safecast.Conv[int](d)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: dimension %d: %w", ds.Path(), i, err)
		}
		shape[i] = n
	}
	return shape, nil
}

func (h *h5File) Read(name string, ranges []*Slice) (*Array, error) {
	ds, err := h.dataset(name)
	if err != nil {
		return nil, err
	}
	shape, err := shapeOf(ds)
	if err != nil {
		return nil, err
	}
	if ds.IsString() {
		strs, err := ds.ReadStrings()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", h.Path(), err)
		}
		return &Array{DType: "string", Shape: shape, Strings: strs}, nil
	}

	start, count, stride, out, empty, err := selection(shape, ranges)
	if err != nil {
		return nil, fmt.Errorf("%s: %q: %w", h.Path(), name, err)
	}
	arr := &Array{DType: ds.DType(), Shape: out}
	if empty {
		arr.Data = []float64{}
		return arr, nil
	}
	arr.Data, err = ds.ReadSlab(start, count, stride)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", h.Path(), err)
	}
	return arr, nil
}

func (h *h5File) Close() error { return h.file.Close() }
