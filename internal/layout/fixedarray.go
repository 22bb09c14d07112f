package layout

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/btree"
)

// readFixedArray reads a fixed array chunk index:
//
//	"FAHD", version, client, entry size, page bits, entries(L), data block(O), checksum
//	"FADB", version, client, header(O), entries, checksum
//
// Client 0 entries are a chunk address; client 1 entries add the filtered
// size and filter mask. Paged data blocks are not supported.
func (c *chunked) readFixedArray() ([]btree.Chunk, error) {
	hr := c.r.At(int64(c.lm.Address))
	head, err := hr.ReadBytes(8)
	if err != nil {
		return nil, err
	}
	if string(head[:4]) != "FAHD" {
		return nil, fmt.Errorf("%w: fixed array header signature %q", ErrUnsupported, head[:4])
	}
	client, entrySize, pageBits := head[5], int(head[6]), head[7]
	count, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}
	blockAddr, err := hr.ReadOffset()
	if err != nil {
		return nil, err
	}
	if count > 1<<pageBits {
		return nil, fmt.Errorf("%w: paged fixed array", ErrUnsupported)
	}

	br := c.r.At(int64(blockAddr))
	sig, err := br.ReadBytes(6)
	if err != nil {
		return nil, err
	}
	if string(sig[:4]) != "FADB" {
		return nil, fmt.Errorf("%w: fixed array block signature %q", ErrUnsupported, sig[:4])
	}
	br.Skip(int64(br.OffsetSize()))

	type entry struct {
		addr       uint64
		size, mask uint32
	}
	entries := make([]entry, count)
	for i := range entries {
		raw, err := br.ReadBytes(entrySize)
		if err != nil {
			return nil, err
		}
		e := entry{size: uint32(c.chunkBytes())}
		e.addr = decodeLE(raw[:br.OffsetSize()])
		if client == 1 {
			e.size = uint32(decodeLE(raw[br.OffsetSize() : entrySize-4]))
			e.mask = uint32(decodeLE(raw[entrySize-4:]))
		}
		entries[i] = e
	}
	return c.gridChunks(func(i uint64) (uint64, uint32, uint32, error) {
		if i >= uint64(len(entries)) {
			return 0, 0, 0, fmt.Errorf("chunk %d beyond fixed array", i)
		}
		e := entries[i]
		return e.addr, e.size, e.mask, nil
	}), nil
}

func decodeLE(b []byte) uint64 { return binpkg.DecodeUint(binary.LittleEndian, b) }
