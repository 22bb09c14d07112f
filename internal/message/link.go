package message

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
)

// LinkType is the kind of a link message.
type LinkType uint8

const (
	LinkHard     LinkType = 0
	LinkSoft     LinkType = 1
	LinkExternal LinkType = 64
)

// Link names a child of a new-style group.
type Link struct {
	Name     string
	LinkType LinkType

	// Address is the child's object header for hard links.
	Address uint64
	// Target is the path of a soft link.
	Target string
}

func (m *Link) Type() Type { return TypeLink }

// ParseLink decodes a link message body.
//
//	version, flags, [type], [creation order(8)], [charset],
//	name length(1<<(flags&3)), name, link value
func ParseLink(data []byte, r *binary.Reader) (*Link, error) {
	d := newDecoder(data, r)
	if v := d.u8(); v != 1 && d.err == nil {
		return nil, fmt.Errorf("%w: link version %d", ErrUnsupported, v)
	}
	flags := d.u8()
	m := &Link{}
	if flags&0x08 != 0 {
		m.LinkType = LinkType(d.u8())
	}
	if flags&0x04 != 0 {
		d.skip(8)
	}
	if flags&0x10 != 0 {
		d.skip(1)
	}
	m.Name = string(d.bytes(int(d.uintN(1 << (flags & 0x03)))))

	switch m.LinkType {
	case LinkHard:
		m.Address = d.offset()
	case LinkSoft:
		m.Target = string(d.bytes(int(d.u16())))
	default:
		d.skip(int(d.u16()))
	}
	if d.err != nil {
		return nil, d.err
	}
	return m, nil
}
