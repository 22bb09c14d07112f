package object

import (
	"github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// Version 1 prefix (16 bytes):
//
//	version, reserved, message count(2), refcount(4), header size(4), reserved(4)
//
// Messages:
//
//	type(2), size(2), flags(1), reserved(3), body padded to 8
func readV1(r *binary.Reader, h *Header, seen map[uint64]bool) error {
	prefix, err := r.ReadBytes(16)
	if err != nil {
		return err
	}
	size := int64(prefix[8]) | int64(prefix[9])<<8 | int64(prefix[10])<<16 | int64(prefix[11])<<24
	return readV1Block(r, h, r.Pos()+size, seen)
}

func readV1Block(r *binary.Reader, h *Header, end int64, seen map[uint64]bool) error {
	for r.Pos()+8 <= end {
		typ, err := r.ReadUint16()
		if err != nil {
			return err
		}
		size, err := r.ReadUint16()
		if err != nil {
			return err
		}
		r.Skip(4)
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return err
		}
		r.Align(8)

		err = h.add(r, message.Type(typ), body, seen, func(r *binary.Reader, c *message.Continuation) error {
			return readV1Block(r.At(int64(c.Offset)), h, int64(c.Offset+c.Length), seen)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
