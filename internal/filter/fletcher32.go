package filter

import (
	"encoding/binary"
	"fmt"
)

// fletcher32 strips and checks the 4-byte checksum HDF5 appends to a chunk.
type fletcher32 struct{}

func (fletcher32) ID() uint16 { return IDFletcher32 }

func (fletcher32) Decode(input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("%w: chunk of %d bytes", ErrChecksum, len(input))
	}
	data := input[:len(input)-4]
	want := binary.LittleEndian.Uint32(input[len(input)-4:])
	if got := Fletcher32(data); got != want {
		return nil, fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksum, want, got)
	}
	return data, nil
}

// Fletcher32 is the HDF5 variant of the checksum. Words are big-endian and
// an odd trailing byte is the high byte of a final word.
func Fletcher32(data []byte) uint32 {
	var sum1, sum2 uint32
	for len(data) > 0 {
		// Bounded so neither sum overflows before folding.
		n := min(len(data)/2, 360)
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			sum1 += uint32(data[2*i])<<8 | uint32(data[2*i+1])
			sum2 += sum1
		}
		data = data[2*n:]
		sum1 = sum1&0xffff + sum1>>16
		sum2 = sum2&0xffff + sum2>>16
	}
	if len(data) == 1 {
		sum1 += uint32(data[0]) << 8
		sum2 += sum1
		sum1 = sum1&0xffff + sum1>>16
		sum2 = sum2&0xffff + sum2>>16
	}
	sum1 = sum1&0xffff + sum1>>16
	sum2 = sum2&0xffff + sum2>>16
	return sum2<<16 | sum1
}
