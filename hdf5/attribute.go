package hdf5

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/btree"
	"github.com/robert-malhotra/go-boutdata/internal/dtype"
	"github.com/robert-malhotra/go-boutdata/internal/heap"
	"github.com/robert-malhotra/go-boutdata/internal/message"
	"github.com/robert-malhotra/go-boutdata/internal/object"
)

// Attribute is a small named array attached to a group or dataset.
type Attribute struct {
	file *File
	msg  *message.Attribute
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.msg.Name }

// Shape returns the attribute dimensions; nil for scalars.
func (a *Attribute) Shape() []uint64 {
	if a.msg.Dataspace.Kind != message.DataspaceSimple {
		return nil
	}
	return a.msg.Dataspace.Dimensions
}

// NumElements returns the number of stored values.
func (a *Attribute) NumElements() int { return int(a.msg.Dataspace.NumElements()) }

// IsScalar reports whether the attribute has a scalar dataspace.
func (a *Attribute) IsScalar() bool { return a.msg.Dataspace.Kind == message.DataspaceScalar }

// DType returns the element type name, such as "float64" or "string".
func (a *Attribute) DType() string { return dtype.Name(a.msg.Datatype) }

// Float64s decodes a numeric attribute.
func (a *Attribute) Float64s() ([]float64, error) {
	return dtype.Decode[float64](a.msg.Datatype, a.msg.Data, a.NumElements())
}

// Int64s decodes an integer attribute.
func (a *Attribute) Int64s() ([]int64, error) {
	return dtype.Decode[int64](a.msg.Datatype, a.msg.Data, a.NumElements())
}

// Strings decodes a text attribute.
func (a *Attribute) Strings() ([]string, error) {
	a.file.mu.Lock()
	defer a.file.mu.Unlock()
	return dtype.Strings(a.msg.Datatype, a.msg.Data, a.NumElements(), a.file.heaps, a.file.reader.OffsetSize())
}

// Value decodes the attribute as a Go value:
//
//   - integers: int64 or []int64
//   - floats: float64 or []float64
//   - text: string or []string
//
// Scalar dataspaces give a single value; simple dataspaces give a slice.
func (a *Attribute) Value() (any, error) {
	dt := a.msg.Datatype
	scalar := a.IsScalar()
	switch {
	case dt.IsString():
		vals, err := a.Strings()
		if err != nil {
			return nil, err
		}
		if scalar && len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil
	case dt.Class == message.ClassFloatPoint:
		vals, err := a.Float64s()
		if err != nil {
			return nil, err
		}
		if scalar && len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil
	case dt.Class == message.ClassFixedPoint || dt.Class == message.ClassEnum:
		vals, err := a.Int64s()
		if err != nil {
			return nil, err
		}
		if scalar && len(vals) == 1 {
			return vals[0], nil
		}
		return vals, nil
	}
	return nil, fmt.Errorf("%w: attribute %q of class %s", ErrUnsupported, a.msg.Name, dt.Class)
}

// readAttributes collects the compact attribute messages of h and, when the
// object uses dense storage, the attributes held in its fractal heap.
func readAttributes(f *File, h *object.Header) ([]*Attribute, error) {
	var out []*Attribute
	for _, m := range h.Attributes() {
		out = append(out, &Attribute{file: f, msg: m})
	}
	ai := h.AttributeInfo()
	if ai == nil || f.reader.IsUndefinedOffset(ai.FractalHeapAddress) {
		return out, nil
	}

	r := f.reader
	fh, err := heap.ReadFractalHeap(r, ai.FractalHeapAddress)
	if err != nil {
		return nil, fmt.Errorf("dense attributes: %w", err)
	}
	// Type 8 records: heap ID(8), flags(1), creation order(4), hash(4).
	err = btree.WalkV2(r, ai.NameIndexAddress, btree.RecordAttributeName, func(rec []byte) error {
		if len(rec) < 8 {
			return errors.New("short attribute name record")
		}
		obj, err := fh.Object(rec[:8])
		if err != nil {
			return err
		}
		m, err := message.ParseAttribute(obj, r)
		if err != nil {
			return err
		}
		out = append(out, &Attribute{file: f, msg: m})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dense attributes: %w", err)
	}
	return out, nil
}

func findAttribute(f *File, h *object.Header, name string) (*Attribute, error) {
	attrs, err := readAttributes(f, h)
	if err != nil {
		return nil, err
	}
	for _, a := range attrs {
		if a.Name() == name {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: attribute %q", ErrNotFound, name)
}
