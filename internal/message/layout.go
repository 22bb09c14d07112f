package message

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
)

// LayoutClass is how a dataset's raw data is stored.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// ChunkIndexType is the chunk index of a version 4 layout. Earlier layout
// versions always index chunks with a version 1 B-tree.
type ChunkIndexType uint8

const (
	ChunkIndexBTreeV1     ChunkIndexType = 0
	ChunkIndexSingle      ChunkIndexType = 1
	ChunkIndexImplicit    ChunkIndexType = 2
	ChunkIndexFixedArray  ChunkIndexType = 3
	ChunkIndexExtensible  ChunkIndexType = 4
	ChunkIndexBTreeV2     ChunkIndexType = 5
)

// DataLayout is the storage layout message.
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Compact.
	CompactData []byte

	// Contiguous data address and size, or the chunk index address.
	Address uint64
	Size    uint64

	// Chunked. ChunkDims excludes the trailing element-size dimension.
	ChunkDims   []uint64
	ElementSize uint32
	ChunkIndex  ChunkIndexType

	// Single chunk index of a filtered dataset.
	FilteredSize uint64
	FilterMask   uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func parseDataLayout(data []byte, r *binary.Reader) (*DataLayout, error) {
	d := newDecoder(data, r)
	m := &DataLayout{Version: d.u8()}
	switch m.Version {
	case 1, 2:
		decodeLayoutV1(d, m)
	case 3, 4:
		decodeLayoutV3(d, m)
	default:
		return nil, fmt.Errorf("%w: layout version %d", ErrUnsupported, m.Version)
	}
	if d.err != nil {
		return nil, d.err
	}
	return m, nil
}

//	dimensionality, class, reserved(5), [address], dims(4 each),
//	[element size], [compact size(4), data]
func decodeLayoutV1(d *decoder, m *DataLayout) {
	ndims := int(d.u8())
	m.Class = LayoutClass(d.u8())
	d.skip(5)
	if m.Class != LayoutCompact {
		m.Address = d.offset()
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		dims[i] = uint64(d.u32())
	}
	switch m.Class {
	case LayoutChunked:
		m.ElementSize = d.u32()
		if ndims > 0 {
			m.ChunkDims = dims[:ndims-1]
		}
		m.ChunkIndex = ChunkIndexBTreeV1
	case LayoutCompact:
		m.CompactData = d.bytes(int(d.u32()))
	}
}

func decodeLayoutV3(d *decoder, m *DataLayout) {
	m.Class = LayoutClass(d.u8())
	switch m.Class {
	case LayoutCompact:
		m.CompactData = d.bytes(int(d.u16()))
	case LayoutContiguous:
		m.Address = d.offset()
		m.Size = d.length()
	case LayoutChunked:
		if m.Version == 3 {
			ndims := int(d.u8())
			m.Address = d.offset()
			dims := make([]uint64, ndims)
			for i := range dims {
				dims[i] = uint64(d.u32())
			}
			if ndims > 0 {
				m.ChunkDims, m.ElementSize = dims[:ndims-1], uint32(dims[ndims-1])
			}
			m.ChunkIndex = ChunkIndexBTreeV1
			return
		}
		decodeChunkedV4(d, m)
	case LayoutVirtual:
		if d.err == nil {
			d.err = fmt.Errorf("%w: virtual dataset layout", ErrUnsupported)
		}
	}
}

//	flags, dimensionality, dim width, dims, index type, index info, address
func decodeChunkedV4(d *decoder, m *DataLayout) {
	flags := d.u8()
	ndims := int(d.u8())
	width := int(d.u8())
	dims := make([]uint64, ndims)
	for i := range dims {
		dims[i] = d.uintN(width)
	}
	if ndims > 0 {
		m.ChunkDims, m.ElementSize = dims[:ndims-1], uint32(dims[ndims-1])
	}

	m.ChunkIndex = ChunkIndexType(d.u8())
	switch m.ChunkIndex {
	case ChunkIndexSingle:
		if flags&0x02 != 0 {
			m.FilteredSize = d.length()
			m.FilterMask = d.u32()
		}
	case ChunkIndexImplicit:
	case ChunkIndexFixedArray:
		d.skip(1)
	case ChunkIndexExtensible:
		d.skip(5)
	case ChunkIndexBTreeV2:
		d.skip(6)
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: chunk index type %d", ErrUnsupported, m.ChunkIndex)
		}
	}
	m.Address = d.offset()
}
