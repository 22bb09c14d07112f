package object

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// Version 2 prefix:
//
//	"OHDR", version, flags, [times(16) if flags&0x20],
//	[attribute phase change(4) if flags&0x10], chunk 0 size(1<<(flags&3))
//
// Messages:
//
//	type(1), size(2), flags(1), [creation order(2) if flags&0x04], body
//
// Each block ends with a lookup3 checksum. Continuation blocks begin with "OCHK".
func readV2(r *binary.Reader, h *Header, seen map[uint64]bool) error {
	start := r.Pos()
	r.Skip(4)
	version, err := r.ReadUint8()
	if err != nil {
		return err
	}
	if version != 2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	flags, err := r.ReadUint8()
	if err != nil {
		return err
	}
	if flags&0x20 != 0 {
		r.Skip(16)
	}
	if flags&0x10 != 0 {
		r.Skip(4)
	}
	size, err := r.ReadUintN(1 << (flags & 0x03))
	if err != nil {
		return err
	}
	end := r.Pos() + int64(size)
	if err := verifyBlock(r, start, end); err != nil {
		return err
	}
	return readV2Block(r, h, end, flags&0x04 != 0, seen)
}

func readV2Block(r *binary.Reader, h *Header, end int64, ordered bool, seen map[uint64]bool) error {
	prefix := int64(4)
	if ordered {
		prefix += 2
	}
	for r.Pos()+prefix <= end {
		typ, err := r.ReadUint8()
		if err != nil {
			return err
		}
		size, err := r.ReadUint16()
		if err != nil {
			return err
		}
		r.Skip(prefix - 3)
		body, err := r.ReadBytes(int(size))
		if err != nil {
			return err
		}

		err = h.add(r, message.Type(typ), body, seen, func(r *binary.Reader, c *message.Continuation) error {
			cr := r.At(int64(c.Offset))
			sig, err := cr.ReadBytes(4)
			if err != nil {
				return err
			}
			if string(sig) != "OCHK" {
				return fmt.Errorf("%w: continuation signature %q", ErrInvalidHeader, sig)
			}
			cend := int64(c.Offset+c.Length) - 4
			if err := verifyBlock(cr, int64(c.Offset), cend); err != nil {
				return err
			}
			return readV2Block(cr, h, cend, ordered, seen)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// verifyBlock checks the lookup3 checksum stored at end over [start, end).
func verifyBlock(r *binary.Reader, start, end int64) error {
	body, err := r.At(start).ReadBytes(int(end - start))
	if err != nil {
		return err
	}
	sum, err := r.At(end).ReadUint32()
	if err != nil {
		return err
	}
	if !binary.VerifyLookup3(body, sum) {
		return fmt.Errorf("%w: checksum mismatch at %d", ErrInvalidHeader, start)
	}
	return nil
}
