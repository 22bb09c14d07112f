package message

import (
	"bytes"
	"encoding/binary"

	binpkg "github.com/robert-malhotra/go-boutdata/internal/binary"
)

// decoder walks a message body. The first short read sets err and every
// later call returns zero values, so callers check err once at the end.
type decoder struct {
	b          []byte
	off        int
	offsetSize int
	lengthSize int
	err        error
}

func newDecoder(b []byte, r *binpkg.Reader) *decoder {
	d := &decoder{b: b, offsetSize: 8, lengthSize: 8}
	if r != nil {
		d.offsetSize, d.lengthSize = r.OffsetSize(), r.LengthSize()
	}
	return d
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.b) {
		d.err = ErrTruncated
		return nil
	}
	p := d.b[d.off : d.off+n]
	d.off += n
	return p
}

func (d *decoder) skip(n int) { d.take(n) }

func (d *decoder) u8() uint8 {
	if p := d.take(1); p != nil {
		return p[0]
	}
	return 0
}

func (d *decoder) u16() uint16 { return uint16(d.uintN(2)) }
func (d *decoder) u32() uint32 { return uint32(d.uintN(4)) }

func (d *decoder) uintN(n int) uint64 {
	if p := d.take(n); p != nil {
		return binpkg.DecodeUint(binary.LittleEndian, p)
	}
	return 0
}

func (d *decoder) offset() uint64 { return d.uintN(d.offsetSize) }
func (d *decoder) length() uint64 { return d.uintN(d.lengthSize) }

// bytes copies the next n bytes out of the body.
func (d *decoder) bytes(n int) []byte {
	if p := d.take(n); p != nil {
		return append([]byte(nil), p...)
	}
	return nil
}

// cstring reads a NUL-terminated string and consumes the terminator.
func (d *decoder) cstring() string {
	if d.err != nil {
		return ""
	}
	i := bytes.IndexByte(d.b[d.off:], 0)
	if i < 0 {
		d.err = ErrTruncated
		return ""
	}
	s := string(d.b[d.off : d.off+i])
	d.off += i + 1
	return s
}

// pad8 skips to the next multiple of eight relative to start.
func (d *decoder) pad8(start int) {
	if rem := (d.off - start) % 8; rem != 0 {
		d.skip(8 - rem)
	}
}

func (d *decoder) rest() []byte {
	if d.err != nil || d.off >= len(d.b) {
		return nil
	}
	return d.b[d.off:]
}
