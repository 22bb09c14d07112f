package heap

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	binpkg "github.com/robert-malhotra/go-boutdata/internal/binary"
)

// FractalHeap reads objects out of a fractal heap. Only managed and tiny
// objects in unfiltered heaps are supported, which covers the link and
// attribute heaps written by HDF5 and NetCDF-4.
type FractalHeap struct {
	r *binpkg.Reader

	idLen        int
	filtered     bool
	tableWidth   int
	startBlock   uint64
	maxDirect    uint64
	rootAddr     uint64
	rootRows     int
	checksummed  bool
	offsetBytes  int
	lengthBytes  int
	directRows   int
	firstRowBits int
}

// ReadFractalHeap reads the "FRHD" header at address.
func ReadFractalHeap(r *binpkg.Reader, address uint64) (*FractalHeap, error) {
	hr := r.At(int64(address))
	head, err := hr.ReadBytes(5)
	if err != nil {
		return nil, fmt.Errorf("fractal heap at %d: %w", address, err)
	}
	if string(head[:4]) != "FRHD" || head[4] != 0 {
		return nil, fmt.Errorf("%w: fractal heap at %d", ErrInvalidHeap, address)
	}

	h := &FractalHeap{r: r}
	idLen, _ := hr.ReadUint16()
	filterLen, _ := hr.ReadUint16()
	flags, _ := hr.ReadUint8()
	maxManaged, _ := hr.ReadUint32()
	h.idLen = int(idLen)
	h.filtered = filterLen > 0
	h.checksummed = flags&0x02 != 0

	// next huge id, huge btree, free space, free space manager, managed
	// space, allocated space, iterator offset, managed/huge/tiny counts
	hr.Skip(int64(10*hr.LengthSize() + 2*hr.OffsetSize()))

	width, _ := hr.ReadUint16()
	h.tableWidth = int(width)
	if h.startBlock, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.maxDirect, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	maxHeapBits, _ := hr.ReadUint16()
	hr.Skip(2)
	if h.rootAddr, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	rows, err := hr.ReadUint16()
	if err != nil {
		return nil, err
	}
	h.rootRows = int(rows)

	if h.tableWidth == 0 || h.startBlock == 0 || h.maxDirect < h.startBlock {
		return nil, fmt.Errorf("%w: fractal heap doubling table at %d", ErrInvalidHeap, address)
	}
	h.offsetBytes = (int(maxHeapBits) + 7) / 8
	h.lengthBytes = min((log2(h.maxDirect)+7)/8, encWidth(uint64(maxManaged)))
	h.directRows = log2(h.maxDirect) - log2(h.startBlock) + 2
	h.firstRowBits = log2(h.startBlock) + log2(uint64(h.tableWidth))
	return h, nil
}

// IDLength is the size of heap IDs for this heap.
func (h *FractalHeap) IDLength() int { return h.idLen }

// Object returns the object named by a heap ID.
func (h *FractalHeap) Object(id []byte) ([]byte, error) {
	if len(id) == 0 {
		return nil, fmt.Errorf("empty fractal heap id")
	}
	switch kind := id[0] >> 4 & 0x03; kind {
	case 0:
		if h.filtered {
			return nil, fmt.Errorf("filtered fractal heaps are not supported")
		}
		if len(id) < 1+h.offsetBytes+h.lengthBytes {
			return nil, fmt.Errorf("fractal heap id too short: %d bytes", len(id))
		}
		off := binpkg.DecodeUint(binary.LittleEndian, id[1:1+h.offsetBytes])
		n := binpkg.DecodeUint(binary.LittleEndian, id[1+h.offsetBytes:1+h.offsetBytes+h.lengthBytes])
		addr, err := h.locate(off)
		if err != nil {
			return nil, err
		}
		return h.r.At(int64(addr)).ReadBytes(int(n))
	case 2:
		n := int(id[0]&0x0f) + 1
		if 1+n > len(id) {
			return nil, fmt.Errorf("tiny fractal heap object overruns id")
		}
		return append([]byte(nil), id[1:1+n]...), nil
	default:
		return nil, fmt.Errorf("fractal heap object type %d is not supported", kind)
	}
}

// locate maps a heap-space offset to a file address.
func (h *FractalHeap) locate(off uint64) (uint64, error) {
	if h.rootRows == 0 {
		return h.rootAddr + off, nil
	}
	blockAddr, blockOff, err := h.findDirect(h.rootAddr, 0, h.rootRows, off)
	if err != nil {
		return 0, err
	}
	return blockAddr + (off - blockOff), nil
}

// findDirect walks indirect blocks down to the direct block holding off.
// base is the heap offset of the indirect block at addr.
func (h *FractalHeap) findDirect(addr, base uint64, rows int, off uint64) (uint64, uint64, error) {
	ir := h.r.At(int64(addr))
	sig, err := ir.ReadBytes(5)
	if err != nil {
		return 0, 0, err
	}
	if string(sig[:4]) != "FHIB" {
		return 0, 0, fmt.Errorf("%w: indirect block at %d", ErrInvalidHeap, addr)
	}
	ir.Skip(int64(ir.OffsetSize() + h.offsetBytes))

	rel := off - base
	for row := 0; row < rows; row++ {
		size := h.rowBlockSize(row)
		span := size * uint64(h.tableWidth)
		if rel >= span {
			rel -= span
			ir.Skip(int64(h.tableWidth * ir.OffsetSize()))
			continue
		}
		col := rel / size
		ir.Skip(int64(col) * int64(ir.OffsetSize()))
		child, err := ir.ReadOffset()
		if err != nil {
			return 0, 0, err
		}
		if ir.IsUndefinedOffset(child) {
			return 0, 0, fmt.Errorf("fractal heap offset %d is in an unallocated block", off)
		}
		childBase := off - (rel - col*size)
		if row < h.directRows {
			return child, childBase, nil
		}
		childRows := log2(size) - h.firstRowBits + 1
		return h.findDirect(child, childBase, childRows, off)
	}
	return 0, 0, fmt.Errorf("fractal heap offset %d beyond indirect block at %d", off, addr)
}

func (h *FractalHeap) rowBlockSize(row int) uint64 {
	if row == 0 {
		return h.startBlock
	}
	return h.startBlock << (row - 1)
}

func log2(n uint64) int {
	if n == 0 {
		return 0
	}
	return bits.Len64(n) - 1
}

// encWidth is the number of bytes HDF5 uses to encode values up to n.
func encWidth(n uint64) int { return log2(n)/8 + 1 }
