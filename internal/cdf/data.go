package cdf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ReadSlab decodes a strided hyperslab of a numeric variable to float64.
// Nil start, count and stride select everything.
func (f *File) ReadSlab(v *Variable, start, count, stride []uint64) ([]float64, error) {
	if v.Type == Char {
		return nil, fmt.Errorf("%w: %q is text", ErrUnsupportedType, v.Name)
	}
	raw, err := f.readRaw(v, start, count, stride)
	if err != nil {
		return nil, err
	}
	n := len(raw) / v.Type.Size()
	if v.Type.IsFloat() {
		return decodeFloats(v.Type, raw, n), nil
	}
	ints := decodeInts(v.Type, raw, n)
	out := make([]float64, n)
	for i, x := range ints {
		out[i] = float64(x)
	}
	return out, nil
}

// ReadText reads a char variable as strings, one per row of the last
// dimension. A rank 0 or 1 variable gives a single string.
func (f *File) ReadText(v *Variable) ([]string, error) {
	if v.Type != Char {
		return nil, fmt.Errorf("%w: %q is %s, not text", ErrUnsupportedType, v.Name, v.Type)
	}
	raw, err := f.readRaw(v, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	shape := f.Shape(v)
	if len(shape) < 2 {
		return []string{trimText(raw)}, nil
	}
	width := int(shape[len(shape)-1])
	if width == 0 {
		return make([]string, len(raw)), nil
	}
	out := make([]string, 0, len(raw)/width)
	for i := 0; i+width <= len(raw); i += width {
		out = append(out, trimText(raw[i:i+width]))
	}
	return out, nil
}

// readRaw gathers the selected elements in row-major order, still encoded.
func (f *File) readRaw(v *Variable, start, count, stride []uint64) ([]byte, error) {
	shape := f.Shape(v)
	rank := len(shape)
	if start == nil {
		start = make([]uint64, rank)
	}
	if count == nil {
		count = append([]uint64(nil), shape...)
	}
	if stride == nil {
		stride = make([]uint64, rank)
		for i := range stride {
			stride[i] = 1
		}
	}
	if len(start) != rank || len(count) != rank || len(stride) != rank {
		return nil, fmt.Errorf("%q: rank %d selection on rank %d variable", v.Name, len(start), rank)
	}
	total := uint64(1)
	for d := 0; d < rank; d++ {
		if stride[d] == 0 {
			return nil, fmt.Errorf("%q: zero stride on axis %d", v.Name, d)
		}
		if count[d] > 0 && start[d]+(count[d]-1)*stride[d] >= shape[d] {
			return nil, fmt.Errorf("%q: selection exceeds axis %d of size %d", v.Name, d, shape[d])
		}
		total *= count[d]
	}
	size := uint64(v.Type.Size())
	out := make([]byte, 0, total*size)
	if total == 0 {
		return out, nil
	}
	if rank == 0 {
		return f.readAt(out, v.begin, size)
	}

	// Element strides within one record (or the whole variable).
	elemStride := make([]uint64, rank)
	elemStride[rank-1] = 1
	for d := rank - 2; d >= 0; d-- {
		elemStride[d] = elemStride[d+1] * shape[d+1]
	}

	last := rank - 1
	span := (count[last]-1)*stride[last] + 1
	buf := make([]byte, span*size)
	idx := make([]uint64, rank)
	for {
		var off uint64
		for d := 0; d < last; d++ {
			g := start[d] + idx[d]*stride[d]
			if d == 0 && v.record {
				off += g * f.recSize
			} else {
				off += g * elemStride[d] * size
			}
		}
		g := start[last]
		if last == 0 && v.record {
			// Rank 1 record variable: each element is its own record.
			for k := uint64(0); k < count[last]; k++ {
				var err error
				if out, err = f.readAt(out, v.begin+(g+k*stride[last])*f.recSize, size); err != nil {
					return nil, err
				}
			}
		} else {
			pos := v.begin + off + g*size
			if err := f.fill(buf, pos); err != nil {
				return nil, fmt.Errorf("%q: %w", v.Name, err)
			}
			for k := uint64(0); k < count[last]; k++ {
				at := k * stride[last] * size
				out = append(out, buf[at:at+size]...)
			}
		}

		d := last - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < count[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			break
		}
	}
	return out, nil
}

func (f *File) readAt(out []byte, pos, n uint64) ([]byte, error) {
	b := make([]byte, n)
	if err := f.fill(b, pos); err != nil {
		return nil, err
	}
	return append(out, b...), nil
}

// fill reads len(b) bytes at pos. Bytes past the end of the file read as
// zeros, as for records that were declared but never written.
func (f *File) fill(b []byte, pos uint64) error {
	n, err := f.src.ReadAt(b, int64(pos))
	if errors.Is(err, io.EOF) {
		clear(b[n:])
		return nil
	}
	return err
}

func decodeFloats(t Type, raw []byte, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if t == Float {
			out[i] = float64(math.Float32frombits(binary.BigEndian.Uint32(raw[i*4:])))
		} else {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(raw[i*8:]))
		}
	}
	return out
}

func decodeInts(t Type, raw []byte, n int) []int64 {
	out := make([]int64, n)
	be := binary.BigEndian
	for i := range out {
		switch t {
		case Byte:
			out[i] = int64(int8(raw[i]))
		case UByte:
			out[i] = int64(raw[i])
		case Short:
			out[i] = int64(int16(be.Uint16(raw[i*2:])))
		case UShort:
			out[i] = int64(be.Uint16(raw[i*2:]))
		case Int:
			out[i] = int64(int32(be.Uint32(raw[i*4:])))
		case UInt:
			out[i] = int64(be.Uint32(raw[i*4:]))
		case Int64, UInt64:
			out[i] = int64(be.Uint64(raw[i*8:]))
		}
	}
	return out
}

func trimText(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
