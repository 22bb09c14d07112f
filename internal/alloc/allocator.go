// Package alloc hands out file addresses for an HDF5 image that is built
// append-only, recording each region so the finished layout can be checked.
package alloc

import (
	"fmt"
	"sort"
)

// Region is one allocated span of the file.
type Region struct {
	Addr uint64
	Size uint64
	Tag  string
}

// End returns the first address past the region.
func (r Region) End() uint64 { return r.Addr + r.Size }

// Allocator places regions at the end of the file, in order. The zero value
// allocates from address 0.
type Allocator struct {
	eof     uint64
	regions []Region
}

// New returns an allocator whose first region starts at base.
func New(base uint64) *Allocator {
	return &Allocator{eof: base}
}

// Alloc reserves size bytes at the current end of file, first padding it to
// a multiple of align. An empty region takes no space and is not recorded.
func (a *Allocator) Alloc(size, align uint64, tag string) uint64 {
	if align > 1 {
		if r := a.eof % align; r != 0 {
			a.eof += align - r
		}
	}
	addr := a.eof
	if size == 0 {
		return addr
	}
	a.eof += size
	a.regions = append(a.regions, Region{Addr: addr, Size: size, Tag: tag})
	return addr
}

// EOF returns the end of the file so far.
func (a *Allocator) EOF() uint64 { return a.eof }

// Regions returns the allocated regions sorted by address.
func (a *Allocator) Regions() []Region {
	out := make([]Region, len(a.regions))
	copy(out, a.regions)
	sort.Slice(out, func(i, j int) bool { return out[i].Addr < out[j].Addr })
	return out
}

// Validate reports overlapping regions and regions past the end of file.
func (a *Allocator) Validate() error {
	regions := a.Regions()
	for i, r := range regions {
		if r.End() > a.eof {
			return fmt.Errorf("alloc: %s at 0x%x size %d extends past EOF 0x%x", r.Tag, r.Addr, r.Size, a.eof)
		}
		if i > 0 && regions[i-1].End() > r.Addr {
			p := regions[i-1]
			return fmt.Errorf("alloc: %s [0x%x, 0x%x) overlaps %s [0x%x, 0x%x)", p.Tag, p.Addr, p.End(), r.Tag, r.Addr, r.End())
		}
	}
	return nil
}
