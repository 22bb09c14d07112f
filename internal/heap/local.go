// Package heap reads the three HDF5 heaps: the local heap holding old-style
// group member names, the global heap holding variable-length data, and the
// fractal heap behind dense link and attribute storage.
package heap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
)

// ErrInvalidHeap is returned for a heap whose signature or version is wrong.
var ErrInvalidHeap = errors.New("invalid heap")

// LocalHeap is the data segment of a local heap.
type LocalHeap struct {
	data []byte
}

// ReadLocalHeap reads the local heap at address:
//
//	"HEAP", version 0, reserved(3), data size(L), free list offset(L), data address(O)
func ReadLocalHeap(r *binary.Reader, address uint64) (*LocalHeap, error) {
	hr := r.At(int64(address))
	head, err := hr.ReadBytes(8)
	if err != nil {
		return nil, fmt.Errorf("local heap at %d: %w", address, err)
	}
	if string(head[:4]) != "HEAP" || head[4] != 0 {
		return nil, fmt.Errorf("%w: local heap at %d", ErrInvalidHeap, address)
	}
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	hr.Skip(int64(hr.LengthSize()))
	dataAddr, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	data, err := r.At(int64(dataAddr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("local heap data at %d: %w", dataAddr, err)
	}
	return &LocalHeap{data: data}, nil
}

// String returns the NUL-terminated string at offset.
func (h *LocalHeap) String(offset uint64) (string, error) {
	if offset >= uint64(len(h.data)) {
		return "", fmt.Errorf("local heap offset %d beyond %d bytes", offset, len(h.data))
	}
	s := h.data[offset:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s), nil
}
