package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// lz4Filter decodes the HDF5 LZ4 plugin framing:
//
//	original size(8, big-endian), block size(4, big-endian),
//	then per block: compressed size(4, big-endian), data
//
// A block whose compressed size equals its raw size is stored uncompressed.
type lz4Filter struct{}

func (lz4Filter) ID() uint16 { return IDLZ4 }

func (lz4Filter) Decode(input []byte) ([]byte, error) {
	if len(input) < 12 {
		return nil, fmt.Errorf("lz4 chunk header: %d bytes", len(input))
	}
	total := binary.BigEndian.Uint64(input)
	block := uint64(binary.BigEndian.Uint32(input[8:]))
	if block == 0 {
		block = total
	}
	out := make([]byte, 0, total)
	src := input[12:]

	for remaining := total; remaining > 0; {
		raw := min(block, remaining)
		if len(src) < 4 {
			return nil, fmt.Errorf("lz4 block header truncated")
		}
		n := uint64(binary.BigEndian.Uint32(src))
		src = src[4:]
		if uint64(len(src)) < n {
			return nil, fmt.Errorf("lz4 block truncated: want %d bytes, have %d", n, len(src))
		}
		if n == raw {
			out = append(out, src[:n]...)
		} else {
			dst := make([]byte, raw)
			got, err := lz4.UncompressBlock(src[:n], dst)
			if err != nil {
				return nil, fmt.Errorf("lz4: %w", err)
			}
			if uint64(got) != raw {
				return nil, fmt.Errorf("lz4 block decoded to %d bytes, want %d", got, raw)
			}
			out = append(out, dst...)
		}
		src = src[n:]
		remaining -= raw
	}
	return out, nil
}
