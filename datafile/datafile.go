// Package datafile opens BOUT++ dump files behind one interface, whatever
// their storage: HDF5, NetCDF-4 (which is HDF5) or NetCDF classic.
//
// It also discovers the dump files of a run and keeps a reusable set of
// open handles for repeated reads.
package datafile

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Slice is a half-open, strided index range [Start, Stop) along one axis.
type Slice struct {
	Start, Stop, Step int
}

// Len returns the number of indices the slice selects.
func (s Slice) Len() int {
	if s.Step <= 0 || s.Stop <= s.Start {
		return 0
	}
	return (s.Stop - s.Start + s.Step - 1) / s.Step
}

func (s Slice) String() string {
	return fmt.Sprintf("%d:%d:%d", s.Start, s.Stop, s.Step)
}

// Array is the result of a read. Numeric variables fill Data in row-major
// order; text variables fill Strings.
type Array struct {
	DType   string
	Shape   []int
	Data    []float64
	Strings []string
}

// Len returns the number of elements.
func (a *Array) Len() int {
	if a.Strings != nil {
		return len(a.Strings)
	}
	return len(a.Data)
}

// File is an open dump file.
type File interface {
	// Path returns the path the file was opened from.
	Path() string

	// Names lists the variables in the file.
	Names() []string

	// Dimensions returns the dimension names of a variable, outermost first.
	Dimensions(name string) ([]string, error)

	// Attributes returns the attributes of a variable. Single element
	// arrays are unwrapped to their element.
	Attributes(name string) (map[string]any, error)

	// ReadScalar reads a single-valued numeric variable. It fails with
	// ErrNotPresent when the variable is absent and ErrWrongType when the
	// variable is text or has more than one element.
	ReadScalar(name string) (float64, error)

	// Shape returns the dimension lengths of a variable.
	Shape(name string) ([]int, error)

	// Read reads a variable. A nil ranges reads everything; otherwise it
	// holds one entry per dimension and a nil entry selects the whole axis.
	Read(name string, ranges []*Slice) (*Array, error)

	Close() error
}

var (
	hdf5Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}
	cdfMagic      = []byte("CDF")
)

// Open opens a dump file, choosing the reader from the file's signature
// rather than its extension.
func Open(path string) (File, error) {
	format, err := sniff(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case "hdf5":
		return openHDF5(path)
	case "cdf":
		return openCDF(path)
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// sniff looks for the CDF magic at the start of the file and the HDF5
// signature at 0 and at each power of two from 512, where files with a
// user block keep their superblock.
func sniff(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	buf := make([]byte, len(hdf5Signature))
	for off := int64(0); ; {
		n, err := fh.ReadAt(buf, off)
		if n < len(buf) {
			if err == io.EOF || err == nil {
				return "", nil
			}
			return "", err
		}
		if bytes.Equal(buf, hdf5Signature) {
			return "hdf5", nil
		}
		if off == 0 && bytes.HasPrefix(buf, cdfMagic) {
			return "cdf", nil
		}
		if off == 0 {
			off = 512
		} else {
			off *= 2
		}
	}
}

// selection turns per-axis ranges into a hyperslab over shape. It also
// reports whether the selection is empty.
func selection(shape []int, ranges []*Slice) (start, count, stride []uint64, out []int, empty bool, err error) {
	if ranges == nil {
		out = append([]int(nil), shape...)
		for _, n := range shape {
			if n == 0 {
				empty = true
			}
		}
		return nil, nil, nil, out, empty, nil
	}
	if len(ranges) != len(shape) {
		return nil, nil, nil, nil, false, fmt.Errorf("%d ranges for %d dimensions", len(ranges), len(shape))
	}
	start = make([]uint64, len(shape))
	count = make([]uint64, len(shape))
	stride = make([]uint64, len(shape))
	out = make([]int, len(shape))
	for i, n := range shape {
		s := Slice{0, n, 1}
		if ranges[i] != nil {
			s = *ranges[i]
		}
		if s.Step <= 0 || s.Start < 0 || s.Stop > n || s.Start > s.Stop {
			return nil, nil, nil, nil, false, fmt.Errorf("range %s outside axis %d of length %d", s, i, n)
		}
		out[i] = s.Len()
		if out[i] == 0 {
			empty = true
		}
		start[i], count[i], stride[i] = uint64(s.Start), uint64(out[i]), uint64(s.Step)
	}
	return start, count, stride, out, empty, nil
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// unwrap turns single element slices into their element, the way NetCDF
// stores scalar attributes as length 1 arrays.
func unwrap(v any) any {
	switch x := v.(type) {
	case []int64:
		if len(x) == 1 {
			return x[0]
		}
	case []float64:
		if len(x) == 1 {
			return x[0]
		}
	case []string:
		if len(x) == 1 {
			return x[0]
		}
	}
	return v
}
