package heap

import (
	"bytes"
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-boutdata/internal/binary"
)

// GlobalHeap is one global heap collection.
type GlobalHeap struct {
	objects map[uint16][]byte
}

// GlobalHeapID locates an object in a global heap collection.
type GlobalHeapID struct {
	Collection uint64
	Index      uint32
}

// ParseVarLen decodes a variable-length element: sequence length(4),
// collection address(O), object index(4).
func ParseVarLen(b []byte, offsetSize int) (length uint32, id GlobalHeapID, err error) {
	if len(b) < 8+offsetSize {
		return 0, id, fmt.Errorf("variable-length element: %d bytes", len(b))
	}
	length = binary.LittleEndian.Uint32(b)
	id.Collection = binpkg.DecodeUint(binary.LittleEndian, b[4:4+offsetSize])
	id.Index = binary.LittleEndian.Uint32(b[4+offsetSize:])
	return length, id, nil
}

// ReadGlobalHeap reads the collection at address:
//
//	"GCOL", version 1, reserved(3), collection size(L), objects
//
// Each object is index(2), refcount(2), reserved(4), size(L), data padded to
// eight bytes. Index 0 is the free space object and ends the list.
func ReadGlobalHeap(r *binpkg.Reader, address uint64) (*GlobalHeap, error) {
	hr := r.At(int64(address))
	head, err := hr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("global heap at %d: %w", address, err)
	}
	if string(head[:4]) != "GCOL" || head[4] != 1 {
		return nil, fmt.Errorf("%w: global heap at %d", ErrInvalidHeap, address)
	}
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	end := int64(address + size)

	h := &GlobalHeap{objects: map[uint16][]byte{}}
	for hr.Pos()+8+int64(hr.LengthSize()) <= end {
		index, err := hr.ReadUint16()
		if err != nil {
			return nil, err
		}
		if index == 0 {
			break
		}
		hr.Skip(6)
		n, err := hr.ReadLength()
		if err != nil {
			return nil, err
		}
		data, err := hr.ReadBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("global heap object %d: %w", index, err)
		}
		hr.Align(8)
		h.objects[index] = data
	}
	return h, nil
}

// Object returns the bytes of object index.
func (h *GlobalHeap) Object(index uint32) ([]byte, error) {
	data, ok := h.objects[uint16(index)]
	if !ok {
		return nil, fmt.Errorf("global heap object %d not found", index)
	}
	return data, nil
}

// String returns object index as a string, trimmed at the first NUL.
func (h *GlobalHeap) String(index uint32) (string, error) {
	data, err := h.Object(index)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data), nil
}

// GlobalHeaps caches collections by address for the lifetime of one read.
type GlobalHeaps struct {
	r     *binpkg.Reader
	cache map[uint64]*GlobalHeap
}

// NewGlobalHeaps returns an empty cache over r.
func NewGlobalHeaps(r *binpkg.Reader) *GlobalHeaps {
	return &GlobalHeaps{r: r, cache: map[uint64]*GlobalHeap{}}
}

// Object resolves id, reading its collection on first use.
func (g *GlobalHeaps) Object(id GlobalHeapID) ([]byte, error) {
	h, ok := g.cache[id.Collection]
	if !ok {
		var err error
		if h, err = ReadGlobalHeap(g.r, id.Collection); err != nil {
			return nil, err
		}
		g.cache[id.Collection] = h
	}
	return h.Object(id.Index)
}
