package btree

import (
	"encoding/binary"

	binpkg "github.com/robert-malhotra/go-boutdata/internal/binary"
)

// Chunk is one stored chunk of a dataset.
type Chunk struct {
	// Offset is the element coordinate of the chunk's first element.
	Offset     []uint64
	Size       uint32
	FilterMask uint32
	Address    uint64
}

// ReadChunks lists the chunks indexed by the version 1 tree at addr for a
// dataset of the given rank. Keys are size(4), filter mask(4) and rank+1
// 8-byte offsets, the last of which is always zero.
func ReadChunks(r *binpkg.Reader, addr uint64, rank int) ([]Chunk, error) {
	keySize := 8 + 8*(rank+1)
	var out []Chunk
	err := walkV1(r, addr, nodeChunk, keySize, 0, func(key []byte, child uint64) error {
		if r.IsUndefinedOffset(child) {
			return nil
		}
		c := Chunk{
			Size:       binary.LittleEndian.Uint32(key[0:]),
			FilterMask: binary.LittleEndian.Uint32(key[4:]),
			Offset:     make([]uint64, rank),
			Address:    child,
		}
		for d := range c.Offset {
			c.Offset[d] = binary.LittleEndian.Uint64(key[8+8*d:])
		}
		out = append(out, c)
		return nil
	})
	return out, err
}
