package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/btree"
	"github.com/robert-malhotra/go-boutdata/internal/filter"
	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// chunked storage splits the dataset into equally sized chunks, each stored
// (and filtered) independently. Chunks never written read as zeros.
type chunked struct {
	r      *binary.Reader
	lm     *message.DataLayout
	dims   []uint64
	chunk  []uint64
	elem   uint64
	pipe   *filter.Pipeline
	chunks []btree.Chunk
}

func newChunked(r *binary.Reader, lm *message.DataLayout, dims []uint64, elem uint64,
	pipe *filter.Pipeline) (*chunked, error) {
	if len(lm.ChunkDims) != len(dims) {
		return nil, fmt.Errorf("%w: rank %d chunks for rank %d dataset", ErrUnsupported, len(lm.ChunkDims), len(dims))
	}
	c := &chunked{r: r, lm: lm, dims: dims, chunk: lm.ChunkDims, elem: elem, pipe: pipe}
	for _, n := range c.chunk {
		if n == 0 {
			return nil, fmt.Errorf("%w: zero chunk dimension", ErrUnsupported)
		}
	}
	return c, nil
}

func (c *chunked) Class() message.LayoutClass { return message.LayoutChunked }

func (c *chunked) chunkBytes() uint64 {
	n := c.elem
	for _, d := range c.chunk {
		n *= d
	}
	return n
}

// index lists the stored chunks, reading the chunk index on first use.
func (c *chunked) index() ([]btree.Chunk, error) {
	if c.chunks != nil {
		return c.chunks, nil
	}
	if c.r.IsUndefinedOffset(c.lm.Address) {
		return nil, nil
	}

	var err error
	switch c.lm.ChunkIndex {
	case message.ChunkIndexBTreeV1:
		c.chunks, err = btree.ReadChunks(c.r, c.lm.Address, len(c.dims))
	case message.ChunkIndexSingle:
		size := c.lm.FilteredSize
		if size == 0 {
			size = c.chunkBytes()
		}
		c.chunks = []btree.Chunk{{
			Offset:     make([]uint64, len(c.dims)),
			Size:       uint32(size),
			FilterMask: c.lm.FilterMask,
			Address:    c.lm.Address,
		}}
	case message.ChunkIndexImplicit:
		c.chunks = c.gridChunks(func(i uint64) (uint64, uint32, uint32, error) {
			return c.lm.Address + i*c.chunkBytes(), uint32(c.chunkBytes()), 0, nil
		})
	case message.ChunkIndexFixedArray:
		c.chunks, err = c.readFixedArray()
	default:
		err = fmt.Errorf("%w: chunk index type %d", ErrUnsupported, c.lm.ChunkIndex)
	}
	return c.chunks, err
}

// gridChunks enumerates chunk coordinates in row-major order of the chunk
// grid, asking locate for the storage of the i'th chunk.
func (c *chunked) gridChunks(locate func(i uint64) (addr uint64, size, mask uint32, err error)) []btree.Chunk {
	rank := len(c.dims)
	grid := make([]uint64, rank)
	total := uint64(1)
	for d := range grid {
		grid[d] = (c.dims[d] + c.chunk[d] - 1) / c.chunk[d]
		total *= grid[d]
	}
	var out []btree.Chunk
	for i := uint64(0); i < total; i++ {
		addr, size, mask, err := locate(i)
		if err != nil || c.r.IsUndefinedOffset(addr) || addr == 0 {
			continue
		}
		off := make([]uint64, rank)
		rem := i
		for d := rank - 1; d >= 0; d-- {
			off[d] = rem % grid[d] * c.chunk[d]
			rem /= grid[d]
		}
		out = append(out, btree.Chunk{Offset: off, Size: size, FilterMask: mask, Address: addr})
	}
	return out
}

func (c *chunked) Read(sel Selection) ([]byte, error) {
	if err := sel.Validate(c.dims); err != nil {
		return nil, err
	}
	out := make([]byte, sel.Len()*c.elem)
	chunks, err := c.index()
	if err != nil {
		return nil, err
	}

	for _, ch := range chunks {
		if !c.touches(sel, ch.Offset) {
			continue
		}
		data, err := c.load(ch)
		if err != nil {
			return nil, fmt.Errorf("chunk at %v: %w", ch.Offset, err)
		}
		err = runs(sel, ch.Offset, c.chunk, c.elem, func(r run) error {
			if r.src+r.n > uint64(len(data)) {
				return fmt.Errorf("decoded chunk holds %d bytes, need %d", len(data), r.src+r.n)
			}
			copy(out[r.dst:r.dst+r.n], data[r.src:])
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *chunked) touches(sel Selection, origin []uint64) bool {
	for d := range origin {
		if _, _, ok := overlap(sel.Start[d], sel.Count[d], sel.Stride[d], origin[d], c.chunk[d]); !ok {
			return false
		}
	}
	return true
}

func (c *chunked) load(ch btree.Chunk) ([]byte, error) {
	raw, err := c.r.At(int64(ch.Address)).ReadBytes(int(ch.Size))
	if err != nil {
		return nil, err
	}
	return c.pipe.Decode(raw, ch.FilterMask)
}
