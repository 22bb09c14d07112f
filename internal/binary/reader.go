// Package binary decodes the positioned, variable-width integers that the
// HDF5 and NetCDF classic formats are built from.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrInvalidSize is returned for an offset or length width the formats do not define.
var ErrInvalidSize = errors.New("invalid field width: must be 1, 2, 4, or 8")

// Config describes how multi-byte fields are laid out in a file.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int // width of addresses
	LengthSize int // width of lengths
}

// DefaultConfig is used to read the HDF5 superblock before the real field
// widths are known.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
}

// BigEndian is the layout of NetCDF classic headers, which use 4-byte
// counts and offsets unless the file says otherwise.
func BigEndian() Config {
	return Config{ByteOrder: binary.BigEndian, OffsetSize: 4, LengthSize: 4}
}

// Validate reports whether the widths in c are usable.
func (c Config) Validate() error {
	for _, n := range []int{c.OffsetSize, c.LengthSize} {
		switch n {
		case 1, 2, 4, 8:
		default:
			return fmt.Errorf("%w: %d", ErrInvalidSize, n)
		}
	}
	return nil
}

// Reader is a cursor over an io.ReaderAt. Readers are cheap values; At and
// WithSizes hand out independent cursors over the same source.
type Reader struct {
	src io.ReaderAt
	cfg Config
	pos int64
}

// NewReader returns a Reader at offset 0.
func NewReader(src io.ReaderAt, cfg Config) *Reader {
	return &Reader{src: src, cfg: cfg}
}

// At returns a cursor at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{src: r.src, cfg: r.cfg, pos: offset}
}

// WithSizes returns a cursor at the same position using new field widths.
func (r *Reader) WithSizes(offsetSize, lengthSize int) *Reader {
	cfg := r.cfg
	cfg.OffsetSize, cfg.LengthSize = offsetSize, lengthSize
	return &Reader{src: r.src, cfg: cfg, pos: r.pos}
}

// Source returns the underlying io.ReaderAt.
func (r *Reader) Source() io.ReaderAt { return r.src }

// Config returns the field layout used by r.
func (r *Reader) Config() Config { return r.cfg }

// Pos returns the current offset.
func (r *Reader) Pos() int64 { return r.pos }

// OffsetSize returns the address width in bytes.
func (r *Reader) OffsetSize() int { return r.cfg.OffsetSize }

// LengthSize returns the length width in bytes.
func (r *Reader) LengthSize() int { return r.cfg.LengthSize }

// ByteOrder returns the byte order of multi-byte fields.
func (r *Reader) ByteOrder() binary.ByteOrder { return r.cfg.ByteOrder }

// Peek reads n bytes without moving the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, r.pos); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// Skip moves the cursor forward n bytes.
func (r *Reader) Skip(n int64) { r.pos += n }

// Align rounds the cursor up to a multiple of alignment.
func (r *Reader) Align(alignment int64) {
	if alignment > 1 {
		r.pos = (r.pos + alignment - 1) / alignment * alignment
	}
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUint16 reads a 2-byte unsigned integer.
func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

// ReadUint32 reads a 4-byte unsigned integer.
func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

// ReadUint64 reads an 8-byte unsigned integer.
func (r *Reader) ReadUint64() (uint64, error) {
	return r.ReadUintN(8)
}

// ReadInt32 reads a 4-byte two's complement integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUintN(4)
	return int32(uint32(v)), err
}

// ReadFloat64 reads an IEEE 754 double.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUintN(8)
	return math.Float64frombits(v), err
}

// ReadUintN reads an n-byte unsigned integer.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(r.cfg.ByteOrder, b), nil
}

// ReadOffset reads an address.
func (r *Reader) ReadOffset() (uint64, error) { return r.ReadUintN(r.cfg.OffsetSize) }

// ReadLength reads a length.
func (r *Reader) ReadLength() (uint64, error) { return r.ReadUintN(r.cfg.LengthSize) }

// IsUndefinedOffset reports whether v is the all-ones "no address" value.
func (r *Reader) IsUndefinedOffset(v uint64) bool { return isAllOnes(v, r.cfg.OffsetSize) }

// IsUndefinedLength reports whether v is the all-ones "no length" value.
func (r *Reader) IsUndefinedLength(v uint64) bool { return isAllOnes(v, r.cfg.LengthSize) }

func isAllOnes(v uint64, width int) bool {
	if width >= 8 {
		return v == math.MaxUint64
	}
	return v == uint64(1)<<(8*width)-1
}

// DecodeUint decodes an unsigned integer of any width up to 8 bytes.
func DecodeUint(order binary.ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	case 8:
		return order.Uint64(b)
	}
	var v uint64
	if order == binary.BigEndian {
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return v
	}
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
