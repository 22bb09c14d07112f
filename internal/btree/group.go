package btree

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/heap"
)

// SymbolEntry is one member of an old-style group.
type SymbolEntry struct {
	Name    string
	Address uint64
	// SoftLink holds the target path when the entry caches a soft link.
	SoftLink string
}

// ReadGroupEntries lists the members of the group whose symbol table is
// indexed by the tree at btreeAddr, with names in the local heap at heapAddr.
func ReadGroupEntries(r *binary.Reader, btreeAddr, heapAddr uint64) ([]SymbolEntry, error) {
	names, err := heap.ReadLocalHeap(r, heapAddr)
	if err != nil {
		return nil, err
	}
	var out []SymbolEntry
	err = walkV1(r, btreeAddr, nodeGroup, r.LengthSize(), 0, func(_ []byte, snod uint64) error {
		entries, err := readSymbolNode(r, snod, names)
		out = append(out, entries...)
		return err
	})
	return out, err
}

// readSymbolNode reads a "SNOD" node:
//
//	"SNOD", version 1, reserved, symbol count(2), entries
//
// Entry: name offset(O), header address(O), cache type(4), reserved(4), scratch(16).
func readSymbolNode(r *binary.Reader, addr uint64, names *heap.LocalHeap) ([]SymbolEntry, error) {
	nr := r.At(int64(addr))
	head, err := nr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("symbol node at %d: %w", addr, err)
	}
	if string(head[:4]) != "SNOD" {
		return nil, fmt.Errorf("%w: symbol node at %d", ErrInvalidNode, addr)
	}
	count := int(head[6]) | int(head[7])<<8

	out := make([]SymbolEntry, 0, count)
	for i := 0; i < count; i++ {
		nameOff, err := nr.ReadOffset()
		if err != nil {
			return nil, err
		}
		var e SymbolEntry
		if e.Address, err = nr.ReadOffset(); err != nil {
			return nil, err
		}
		cache, err := nr.ReadUint32()
		if err != nil {
			return nil, err
		}
		nr.Skip(4)
		scratch, err := nr.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		if e.Name, err = names.String(nameOff); err != nil {
			return nil, err
		}
		if cache == 2 {
			off := uint64(scratch[0]) | uint64(scratch[1])<<8 | uint64(scratch[2])<<16 | uint64(scratch[3])<<24
			if e.SoftLink, err = names.String(off); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, nil
}
