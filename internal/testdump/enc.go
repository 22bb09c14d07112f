package testdump

import (
	"encoding/binary"
	"math"
)

// enc appends little-endian fields.
type enc []byte

func (e *enc) u8(v uint8)   { *e = append(*e, v) }
func (e *enc) u16(v uint16) { *e = binary.LittleEndian.AppendUint16(*e, v) }
func (e *enc) u32(v uint32) { *e = binary.LittleEndian.AppendUint32(*e, v) }
func (e *enc) u64(v uint64) { *e = binary.LittleEndian.AppendUint64(*e, v) }
func (e *enc) raw(b []byte) { *e = append(*e, b...) }
func (e *enc) zeros(n int)  { *e = append(*e, make([]byte, n)...) }

// pad8 zero-fills up to the next multiple of eight bytes.
func (e *enc) pad8() {
	for len(*e)%8 != 0 {
		*e = append(*e, 0)
	}
}

func pad8(n int) int { return (n + 7) &^ 7 }

// elements encodes values as float64 or int32, little-endian.
func elements(data []float64, asInt bool) []byte {
	var e enc
	for _, x := range data {
		if asInt {
			e.u32(uint32(int32(x)))
		} else {
			e.u64(math.Float64bits(x))
		}
	}
	return e
}
