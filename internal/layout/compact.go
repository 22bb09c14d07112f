package layout

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// compact storage keeps the whole dataset inside the layout message.
type compact struct {
	data []byte
	dims []uint64
	elem uint64
}

func (c *compact) Class() message.LayoutClass { return message.LayoutCompact }

func (c *compact) Read(sel Selection) ([]byte, error) {
	if err := sel.Validate(c.dims); err != nil {
		return nil, err
	}
	out := make([]byte, sel.Len()*c.elem)
	err := runs(sel, make([]uint64, len(c.dims)), c.dims, c.elem, func(r run) error {
		if r.src+r.n > uint64(len(c.data)) {
			return fmt.Errorf("compact data holds %d bytes, need %d", len(c.data), r.src+r.n)
		}
		copy(out[r.dst:r.dst+r.n], c.data[r.src:])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
