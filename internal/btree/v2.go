package btree

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
)

// Record types of version 2 trees used by this reader.
const (
	RecordLinkName      = 5
	RecordAttributeName = 8
)

const v2Prefix = 4 + 1 + 1 + 4 // signature, version, type, checksum

type v2Header struct {
	recordType uint8
	nodeSize   int
	recordSize int
	depth      int
	root       uint64
	rootCount  int

	// Per level: bytes of the child record count and of the cumulative
	// record count stored with each child pointer.
	countBytes []int
	totalBytes []int
}

// WalkV2 calls fn with every record of the version 2 tree at addr whose
// header declares record type want. Record order is tree order.
func WalkV2(r *binary.Reader, addr uint64, want uint8, fn func(record []byte) error) error {
	h, err := readV2Header(r, addr)
	if err != nil {
		return err
	}
	if h.recordType != want {
		return fmt.Errorf("%w: record type %d, want %d", ErrInvalidNode, h.recordType, want)
	}
	if h.rootCount == 0 || r.IsUndefinedOffset(h.root) {
		return nil
	}
	return h.walk(r, h.root, h.depth, h.rootCount, fn)
}

//	"BTHD", version 0, type, node size(4), record size(2), depth(2),
//	split(1), merge(1), root address(O), root record count(2), total(L)
func readV2Header(r *binary.Reader, addr uint64) (*v2Header, error) {
	hr := r.At(int64(addr))
	head, err := hr.ReadBytes(16)
	if err != nil {
		return nil, fmt.Errorf("B-tree header at %d: %w", addr, err)
	}
	if string(head[:4]) != "BTHD" || head[4] != 0 {
		return nil, fmt.Errorf("%w: header at %d", ErrInvalidNode, addr)
	}
	h := &v2Header{
		recordType: head[5],
		nodeSize:   int(head[6]) | int(head[7])<<8 | int(head[8])<<16 | int(head[9])<<24,
		recordSize: int(head[10]) | int(head[11])<<8,
		depth:      int(head[12]) | int(head[13])<<8,
	}
	if h.root, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	count, err := hr.ReadUint16()
	if err != nil {
		return nil, err
	}
	h.rootCount = int(count)
	if h.recordSize == 0 || h.nodeSize <= v2Prefix {
		return nil, fmt.Errorf("%w: header at %d", ErrInvalidNode, addr)
	}
	if h.depth > maxDepth {
		return nil, fmt.Errorf("%w: depth %d", ErrInvalidNode, h.depth)
	}
	h.sizeNodes(r.OffsetSize())
	return h, nil
}

// sizeNodes derives the widths of the count fields in internal nodes the
// same way the HDF5 library does when it creates the tree.
func (h *v2Header) sizeNodes(offsetSize int) {
	h.countBytes = make([]int, h.depth+1)
	h.totalBytes = make([]int, h.depth+1)

	leafMax := uint64((h.nodeSize - v2Prefix) / h.recordSize)
	countBytes := encWidth(leafMax)
	cumulative := leafMax
	for level := 1; level <= h.depth; level++ {
		ptr := offsetSize + countBytes + h.totalBytes[level-1]
		maxRecords := uint64((h.nodeSize - v2Prefix - ptr) / (h.recordSize + ptr))
		cumulative = (maxRecords+1)*cumulative + maxRecords
		h.countBytes[level] = countBytes
		h.totalBytes[level] = encWidth(cumulative)
	}
	h.totalBytes[0] = 0
}

func (h *v2Header) walk(r *binary.Reader, addr uint64, depth, count int, fn func([]byte) error) error {
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(6)
	if err != nil {
		return fmt.Errorf("B-tree node at %d: %w", addr, err)
	}
	sig := "BTLF"
	if depth > 0 {
		sig = "BTIN"
	}
	if string(head[:4]) != sig || head[5] != h.recordType {
		return fmt.Errorf("%w: %s at %d", ErrInvalidNode, sig, addr)
	}

	records := make([][]byte, count)
	for i := range records {
		if records[i], err = nr.ReadBytes(h.recordSize); err != nil {
			return err
		}
	}
	if depth == 0 {
		for _, rec := range records {
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	}

	// Internal node: count+1 child pointers follow the records. Children
	// and records interleave in key order.
	for i := 0; i <= count; i++ {
		child, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		n, err := nr.ReadUintN(h.countBytes[depth])
		if err != nil {
			return err
		}
		if tb := h.totalBytes[depth-1]; depth > 1 && tb > 0 {
			nr.Skip(int64(tb))
		}
		if err := h.walk(r, child, depth-1, int(n), fn); err != nil {
			return err
		}
		if i < count {
			if err := fn(records[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func encWidth(n uint64) int {
	w := 0
	for n > 0 {
		n >>= 1
		w++
	}
	if w > 0 {
		w--
	}
	return w/8 + 1
}
