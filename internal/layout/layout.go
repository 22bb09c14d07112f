// Package layout reads hyperslab selections out of compact, contiguous and
// chunked dataset storage.
//
// Every layout reduces a selection to runs: byte ranges that are contiguous
// both in the stored region and in the row-major output buffer. Compact and
// contiguous storage are a single region spanning the dataset; chunked
// storage is one region per chunk.
package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/filter"
	"github.com/robert-malhotra/go-boutdata/internal/message"
)

var (
	ErrUnsupported = errors.New("unsupported storage layout")
	ErrSelection   = errors.New("invalid selection")
)

// Selection is a strided hyperslab: along each axis, Count elements starting
// at Start and Stride apart.
type Selection struct {
	Start  []uint64
	Count  []uint64
	Stride []uint64
}

// All selects every element of dims.
func All(dims []uint64) Selection {
	s := Selection{
		Start:  make([]uint64, len(dims)),
		Count:  append([]uint64(nil), dims...),
		Stride: make([]uint64, len(dims)),
	}
	for i := range s.Stride {
		s.Stride[i] = 1
	}
	return s
}

// Len is the number of selected elements.
func (s Selection) Len() uint64 {
	n := uint64(1)
	for _, c := range s.Count {
		n *= c
	}
	return n
}

// Validate checks s against the dataset dimensions.
func (s Selection) Validate(dims []uint64) error {
	if len(s.Start) != len(dims) || len(s.Count) != len(dims) || len(s.Stride) != len(dims) {
		return fmt.Errorf("%w: rank %d selection on rank %d dataset", ErrSelection, len(s.Start), len(dims))
	}
	for d := range dims {
		if s.Stride[d] == 0 {
			return fmt.Errorf("%w: zero stride on axis %d", ErrSelection, d)
		}
		if s.Count[d] == 0 {
			continue
		}
		last := s.Start[d] + (s.Count[d]-1)*s.Stride[d]
		if last >= dims[d] {
			return fmt.Errorf("%w: axis %d reaches %d, size %d", ErrSelection, d, last, dims[d])
		}
	}
	return nil
}

// Layout reads selections from one dataset's storage.
type Layout interface {
	Class() message.LayoutClass
	// Read returns the selected elements in row-major order.
	Read(sel Selection) ([]byte, error)
}

// New returns the reader for a dataset's layout message.
func New(r *binary.Reader, lm *message.DataLayout, space *message.Dataspace,
	dt *message.Datatype, fp *message.FilterPipeline) (Layout, error) {
	dims := space.Dimensions
	elem := uint64(dt.Size)
	switch lm.Class {
	case message.LayoutCompact:
		return &compact{data: lm.CompactData, dims: dims, elem: elem}, nil
	case message.LayoutContiguous:
		return &contiguous{r: r, addr: lm.Address, dims: dims, elem: elem}, nil
	case message.LayoutChunked:
		pipe, err := filter.NewPipeline(fp, int(elem))
		if err != nil {
			return nil, err
		}
		return newChunked(r, lm, dims, elem, pipe)
	}
	return nil, fmt.Errorf("%w: class %d", ErrUnsupported, lm.Class)
}

// run is a contiguous copy: n bytes from src offset to dst offset.
type run struct {
	src, dst, n uint64
}

// runs enumerates the part of sel that falls inside the region starting at
// origin with extent dims (row-major, elem bytes per element). Source
// offsets are relative to the region, destination offsets to the output
// buffer of sel. Adjacent runs are merged.
func runs(sel Selection, origin, dims []uint64, elem uint64, fn func(run) error) error {
	rank := len(dims)
	if rank == 0 {
		return fn(run{0, 0, elem})
	}

	// Per axis, the range of selection indices [lo, hi) inside the region.
	lo := make([]uint64, rank)
	hi := make([]uint64, rank)
	for d := 0; d < rank; d++ {
		l, h, ok := overlap(sel.Start[d], sel.Count[d], sel.Stride[d], origin[d], dims[d])
		if !ok {
			return nil
		}
		lo[d], hi[d] = l, h
	}

	srcStride := make([]uint64, rank)
	dstStride := make([]uint64, rank)
	srcStride[rank-1], dstStride[rank-1] = elem, elem
	for d := rank - 2; d >= 0; d-- {
		srcStride[d] = srcStride[d+1] * dims[d+1]
		dstStride[d] = dstStride[d+1] * sel.Count[d+1]
	}

	last := rank - 1
	contiguousLast := sel.Stride[last] == 1
	var pending run
	flush := func(next run) error {
		if pending.n > 0 && pending.src+pending.n == next.src && pending.dst+pending.n == next.dst {
			pending.n += next.n
			return nil
		}
		if pending.n > 0 {
			if err := fn(pending); err != nil {
				return err
			}
		}
		pending = next
		return nil
	}

	idx := append([]uint64(nil), lo...)
	for {
		var src, dst uint64
		for d := 0; d < last; d++ {
			g := sel.Start[d] + idx[d]*sel.Stride[d]
			src += (g - origin[d]) * srcStride[d]
			dst += idx[d] * dstStride[d]
		}
		if contiguousLast {
			g := sel.Start[last] + lo[last]
			err := flush(run{
				src: src + (g-origin[last])*elem,
				dst: dst + lo[last]*elem,
				n:   (hi[last] - lo[last]) * elem,
			})
			if err != nil {
				return err
			}
		} else {
			for k := lo[last]; k < hi[last]; k++ {
				g := sel.Start[last] + k*sel.Stride[last]
				if err := flush(run{src + (g-origin[last])*elem, dst + k*elem, elem}); err != nil {
					return err
				}
			}
		}

		// Odometer over the outer axes.
		d := last - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < hi[d] {
				break
			}
			idx[d] = lo[d]
		}
		if d < 0 {
			break
		}
	}
	if pending.n > 0 {
		return fn(pending)
	}
	return nil
}

// overlap returns the selection indices k in [lo, hi) with
// start+k*stride inside [origin, origin+size).
func overlap(start, count, stride, origin, size uint64) (lo, hi uint64, ok bool) {
	if count == 0 || size == 0 {
		return 0, 0, false
	}
	end := origin + size
	last := start + (count-1)*stride
	if last < origin || start >= end {
		return 0, 0, false
	}
	if start < origin {
		lo = (origin - start + stride - 1) / stride
	}
	hi = min(count, (end-1-start)/stride+1)
	return lo, hi, lo < hi
}
