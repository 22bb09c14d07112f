package layout

import (
	"errors"
	"io"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// contiguous storage is one block in the file; runs are read in place.
type contiguous struct {
	r    *binary.Reader
	addr uint64
	dims []uint64
	elem uint64
}

func (c *contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

func (c *contiguous) Read(sel Selection) ([]byte, error) {
	if err := sel.Validate(c.dims); err != nil {
		return nil, err
	}
	out := make([]byte, sel.Len()*c.elem)
	// Space is allocated lazily; an undefined address reads as zeros.
	if c.r.IsUndefinedOffset(c.addr) {
		return out, nil
	}
	src := c.r.Source()
	err := runs(sel, make([]uint64, len(c.dims)), c.dims, c.elem, func(r run) error {
		n, err := src.ReadAt(out[r.dst:r.dst+r.n], int64(c.addr+r.src))
		if uint64(n) == r.n && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
