package hdf5

import (
	"encoding/binary"
	"fmt"
	"path"

	binpkg "github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/dtype"
	"github.com/robert-malhotra/go-boutdata/internal/heap"
	"github.com/robert-malhotra/go-boutdata/internal/layout"
	"github.com/robert-malhotra/go-boutdata/internal/message"
	"github.com/robert-malhotra/go-boutdata/internal/object"
)

// Dataset represents an HDF5 dataset.
type Dataset struct {
	file      *File
	path      string
	header    *object.Header
	dataspace *message.Dataspace
	datatype  *message.Datatype
	layout    layout.Layout
}

func newDataset(f *File, path string, header *object.Header) (*Dataset, error) {
	ds := &Dataset{file: f, path: path, header: header}
	if ds.dataspace = header.Dataspace(); ds.dataspace == nil {
		return nil, fmt.Errorf("dataset %s: missing dataspace message", path)
	}
	if ds.datatype = header.Datatype(); ds.datatype == nil {
		return nil, fmt.Errorf("dataset %s: missing datatype message", path)
	}
	lm := header.DataLayout()
	if lm == nil {
		return nil, fmt.Errorf("dataset %s: missing layout message", path)
	}
	var err error
	ds.layout, err = layout.New(f.reader, lm, ds.dataspace, ds.datatype, header.FilterPipeline())
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// Name returns the dataset name (last component of path).
func (d *Dataset) Name() string { return path.Base(d.path) }

// Path returns the full path to this dataset.
func (d *Dataset) Path() string { return d.path }

// Shape returns the dimensions of the dataset; nil for scalars.
func (d *Dataset) Shape() []uint64 {
	if d.dataspace.Kind != message.DataspaceSimple {
		return nil
	}
	return d.dataspace.Dimensions
}

// Rank returns the number of dimensions.
func (d *Dataset) Rank() int { return len(d.Shape()) }

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() uint64 { return d.dataspace.NumElements() }

// DType returns the element type name, such as "float64" or "string".
func (d *Dataset) DType() string { return dtype.Name(d.datatype) }

// IsString reports whether the elements are text.
func (d *Dataset) IsString() bool { return d.datatype.IsString() }

// ReadRaw returns the encoded bytes of a strided hyperslab. Nil start,
// count and stride select the whole dataset.
func (d *Dataset) ReadRaw(start, count, stride []uint64) ([]byte, error) {
	if d.file.closed {
		return nil, ErrClosed
	}
	dims := d.Shape()
	sel := layout.All(dims)
	if start != nil {
		sel.Start = start
	}
	if count != nil {
		sel.Count = count
	}
	if stride != nil {
		sel.Stride = stride
	}
	if err := sel.Validate(dims); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", d.path, err)
	}
	data, err := d.layout.Read(sel)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", d.path, err)
	}
	return data, nil
}

// ReadSlab decodes a strided hyperslab of a numeric dataset to float64.
func (d *Dataset) ReadSlab(start, count, stride []uint64) ([]float64, error) {
	raw, err := d.ReadRaw(start, count, stride)
	if err != nil {
		return nil, err
	}
	n := len(raw) / int(d.datatype.Size)
	return dtype.Decode[float64](d.datatype, raw, n)
}

// ReadFloat64 reads the whole dataset as float64.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	return d.ReadSlab(nil, nil, nil)
}

// ReadInt64 reads the whole dataset as int64.
func (d *Dataset) ReadInt64() ([]int64, error) {
	raw, err := d.ReadRaw(nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return dtype.Decode[int64](d.datatype, raw, int(d.NumElements()))
}

// ReadStrings reads a text dataset.
func (d *Dataset) ReadStrings() ([]string, error) {
	raw, err := d.ReadRaw(nil, nil, nil)
	if err != nil {
		return nil, err
	}
	d.file.mu.Lock()
	defer d.file.mu.Unlock()
	return dtype.Strings(d.datatype, raw, int(d.NumElements()), d.file.heaps, d.file.reader.OffsetSize())
}

// Attrs returns the dataset's attributes.
func (d *Dataset) Attrs() ([]*Attribute, error) {
	return readAttributes(d.file, d.header)
}

// Attr returns the named attribute of the dataset.
func (d *Dataset) Attr(name string) (*Attribute, error) {
	return findAttribute(d.file, d.header, name)
}

// IsDimensionScale reports whether the dataset is marked as a dimension
// scale, the way NetCDF-4 stores its dimensions.
func (d *Dataset) IsDimensionScale() bool {
	a, err := d.Attr("CLASS")
	if err != nil {
		return false
	}
	v, err := a.Value()
	return err == nil && v == "DIMENSION_SCALE"
}

// DimensionNames resolves the DIMENSION_LIST attribute to the names of the
// attached dimension scales, one per axis. A dimension scale names its own
// axis. The result is nil when the dataset carries no dimension list.
//
// Each DIMENSION_LIST element is a variable-length sequence of object
// references held in the global heap; only the first reference per axis is
// used. Scales are looked up among the root group's members.
func (d *Dataset) DimensionNames() ([]string, error) {
	a, err := d.Attr("DIMENSION_LIST")
	if err != nil {
		if d.IsDimensionScale() && d.Rank() == 1 {
			return []string{d.Name()}, nil
		}
		return nil, nil
	}
	dt := a.msg.Datatype
	if dt.Class != message.ClassVarLen || dt.Base == nil || dt.Base.Class != message.ClassReference {
		return nil, fmt.Errorf("%w: DIMENSION_LIST of class %s", ErrUnsupported, dt.Class)
	}
	osz := d.file.reader.OffsetSize()
	elem := 8 + osz
	n := a.NumElements()
	if len(a.msg.Data) < n*elem {
		return nil, fmt.Errorf("dataset %s: short DIMENSION_LIST", d.path)
	}

	names := make([]string, n)
	for i := range names {
		length, id, err := heap.ParseVarLen(a.msg.Data[i*elem:], osz)
		if err != nil {
			return nil, err
		}
		if length == 0 {
			continue
		}
		obj, err := d.file.globalObject(id)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: dimension %d: %w", d.path, i, err)
		}
		if len(obj) < osz {
			return nil, fmt.Errorf("dataset %s: dimension %d: short reference", d.path, i)
		}
		addr := binpkg.DecodeUint(binary.LittleEndian, obj[:osz])
		name, ok, err := d.file.nameOf(addr)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: dimension scale at %d", ErrNotFound, addr)
		}
		names[i] = name
	}
	return names, nil
}
