// Package cdf reads NetCDF classic files: the original format (CDF-1), the
// 64-bit offset format (CDF-2) and the 64-bit data format (CDF-5).
//
// The header is a sequence of tagged lists. Each variable is stored either
// contiguously at its begin offset or, when its first dimension is the
// unlimited one, interleaved with the other record variables one record at
// a time. Everything is big-endian.
package cdf

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
)

const (
	tagDimension = 0x0a
	tagVariable  = 0x0b
	tagAttribute = 0x0c
)

// streaming marks a numrecs field that was never filled in.
const streaming = 0xffffffff

// maxDimensions bounds the lists read from a corrupt header.
const maxDimensions = 1024

var (
	ErrNotCDF          = errors.New("not a NetCDF classic file")
	ErrUnknownVersion  = errors.New("unknown NetCDF classic version")
	ErrCorrupted       = errors.New("corrupted NetCDF header")
	ErrUnsupportedType = errors.New("unsupported NetCDF type")
)

// Dimension is a named axis. The unlimited dimension has Len zero in the
// header; its length is the file's record count.
type Dimension struct {
	Name      string
	Len       uint64
	Unlimited bool
}

// Attribute is a named value. Values holds []int64 for integer types,
// []float64 for floating point types and string for char.
type Attribute struct {
	Name   string
	Type   Type
	Values any
}

// Variable is one entry of the header's variable list.
type Variable struct {
	Name   string
	DimIDs []int
	Attrs  []Attribute
	Type   Type

	vsize  uint64
	begin  uint64
	record bool
}

// File is an open NetCDF classic file.
type File struct {
	path    string
	src     io.ReaderAt
	closer  io.Closer
	version uint8

	// NumRecs is the length of the unlimited dimension.
	NumRecs uint64
	Dims    []Dimension
	Attrs   []Attribute
	Vars    []*Variable

	recSize uint64
}

// Open reads the header of the file at path.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.path = path
	f.closer = fh
	return f, nil
}

// NewReader reads the header from src. Close does not close src.
func NewReader(src io.ReaderAt) (*File, error) {
	f := &File{src: src}
	if err := f.readHeader(); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases the file.
func (f *File) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string { return f.path }

// Version returns 1, 2 or 5.
func (f *File) Version() int { return int(f.version) }

// Var returns the named variable.
func (f *File) Var(name string) (*Variable, bool) {
	for _, v := range f.Vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Shape returns the dimension lengths of v, with the record count standing
// in for the unlimited dimension.
func (f *File) Shape(v *Variable) []uint64 {
	shape := make([]uint64, len(v.DimIDs))
	for i, id := range v.DimIDs {
		d := f.Dims[id]
		if d.Unlimited {
			shape[i] = f.NumRecs
		} else {
			shape[i] = d.Len
		}
	}
	return shape
}

// DimNames returns the dimension names of v.
func (f *File) DimNames(v *Variable) []string {
	names := make([]string, len(v.DimIDs))
	for i, id := range v.DimIDs {
		names[i] = f.Dims[id].Name
	}
	return names
}

// header is a cursor over the header with the version's field widths.
type header struct {
	r       *binary.Reader
	version uint8
}

// number reads a count: 32 bits before CDF-5, 64 bits after.
func (h *header) number() (uint64, error) {
	if h.version == 5 {
		return h.r.ReadUint64()
	}
	n, err := h.r.ReadUint32()
	return uint64(n), err
}

func (h *header) name() (string, error) {
	n, err := h.number()
	if err != nil {
		return "", err
	}
	if n > 1<<16 {
		return "", fmt.Errorf("%w: name of %d bytes", ErrCorrupted, n)
	}
	b, err := h.r.ReadBytes(int(pad4(n)))
	if err != nil {
		return "", err
	}
	return string(b[:n]), nil
}

// list reads a list header: tag and element count. ABSENT is a zero tag
// with a zero count.
func (h *header) list(tag uint32) (int, error) {
	got, err := h.r.ReadUint32()
	if err != nil {
		return 0, err
	}
	n, err := h.number()
	if err != nil {
		return 0, err
	}
	switch {
	case got == 0 && n == 0:
		return 0, nil
	case got != tag:
		return 0, fmt.Errorf("%w: list tag %#x, want %#x", ErrCorrupted, got, tag)
	case n > maxDimensions*64:
		return 0, fmt.Errorf("%w: list of %d elements", ErrCorrupted, n)
	}
	return int(n), nil
}

func (f *File) readHeader() error {
	magic := make([]byte, 4)
	if _, err := f.src.ReadAt(magic, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrNotCDF, err)
	}
	if string(magic[:3]) != "CDF" {
		return ErrNotCDF
	}
	f.version = magic[3]
	switch f.version {
	case 1, 2, 5:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownVersion, f.version)
	}
	h := &header{r: binary.NewReader(f.src, binary.BigEndian()).At(4), version: f.version}

	numRecs, err := h.number()
	if err != nil {
		return err
	}
	if f.version != 5 && numRecs == streaming {
		return fmt.Errorf("%w: streaming record count", ErrCorrupted)
	}
	f.NumRecs = numRecs

	nDims, err := h.list(tagDimension)
	if err != nil {
		return err
	}
	if nDims > maxDimensions {
		return fmt.Errorf("%w: %d dimensions", ErrCorrupted, nDims)
	}
	for i := 0; i < nDims; i++ {
		name, err := h.name()
		if err != nil {
			return err
		}
		n, err := h.number()
		if err != nil {
			return err
		}
		f.Dims = append(f.Dims, Dimension{Name: name, Len: n, Unlimited: n == 0})
	}

	if f.Attrs, err = h.attributes(); err != nil {
		return err
	}

	nVars, err := h.list(tagVariable)
	if err != nil {
		return err
	}
	var records []*Variable
	for i := 0; i < nVars; i++ {
		v, err := f.readVariable(h)
		if err != nil {
			return err
		}
		if v.record {
			records = append(records, v)
			f.recSize += v.vsize
		}
		f.Vars = append(f.Vars, v)
	}

	// A lone record variable is not padded between records.
	if len(records) == 1 {
		v := records[0]
		f.recSize = uint64(v.Type.Size())
		for _, n := range f.Shape(v)[1:] {
			f.recSize *= n
		}
	}
	return nil
}

func (f *File) readVariable(h *header) (*Variable, error) {
	name, err := h.name()
	if err != nil {
		return nil, err
	}
	nDims, err := h.number()
	if err != nil {
		return nil, err
	}
	if nDims > maxDimensions {
		return nil, fmt.Errorf("%w: variable %q has %d dimensions", ErrCorrupted, name, nDims)
	}
	v := &Variable{Name: name, DimIDs: make([]int, nDims)}
	for i := range v.DimIDs {
		id, err := h.number()
		if err != nil {
			return nil, err
		}
		if id >= uint64(len(f.Dims)) {
			return nil, fmt.Errorf("%w: variable %q uses dimension %d", ErrCorrupted, name, id)
		}
		v.DimIDs[i] = int(id)
	}
	v.record = nDims > 0 && f.Dims[v.DimIDs[0]].Unlimited

	if v.Attrs, err = h.attributes(); err != nil {
		return nil, err
	}
	typ, err := h.r.ReadUint32()
	if err != nil {
		return nil, err
	}
	v.Type = Type(typ)
	if !v.Type.valid(f.version) {
		return nil, fmt.Errorf("%w: variable %q has %s", ErrUnsupportedType, name, v.Type)
	}
	if v.vsize, err = h.number(); err != nil {
		return nil, err
	}
	if f.version == 1 {
		b, err := h.r.ReadUint32()
		v.begin = uint64(b)
		if err != nil {
			return nil, err
		}
	} else if v.begin, err = h.r.ReadUint64(); err != nil {
		return nil, err
	}
	return v, nil
}

func (h *header) attributes() ([]Attribute, error) {
	n, err := h.list(tagAttribute)
	if err != nil {
		return nil, err
	}
	out := make([]Attribute, 0, n)
	for i := 0; i < n; i++ {
		name, err := h.name()
		if err != nil {
			return nil, err
		}
		typ, err := h.r.ReadUint32()
		if err != nil {
			return nil, err
		}
		t := Type(typ)
		if !t.valid(h.version) {
			return nil, fmt.Errorf("%w: attribute %q has %s", ErrUnsupportedType, name, t)
		}
		count, err := h.number()
		if err != nil {
			return nil, err
		}
		raw, err := h.r.ReadBytes(int(pad4(count * uint64(t.Size()))))
		if err != nil {
			return nil, err
		}
		a := Attribute{Name: name, Type: t}
		switch {
		case t == Char:
			a.Values = trimText(raw[:count])
		case t.IsFloat():
			a.Values = decodeFloats(t, raw, int(count))
		default:
			a.Values = decodeInts(t, raw, int(count))
		}
		out = append(out, a)
	}
	return out, nil
}

func pad4(n uint64) uint64 { return (n + 3) &^ 3 }
