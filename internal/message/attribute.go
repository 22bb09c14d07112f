package message

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
)

// Attribute is an attribute message: a small named array stored in the
// object header (or in dense attribute storage).
type Attribute struct {
	Version   uint8
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Data      []byte
}

func (m *Attribute) Type() Type { return TypeAttribute }

// ParseAttribute decodes an attribute message body.
//
//	version, flags, name size(2), datatype size(2), dataspace size(2),
//	[v3: charset], name, datatype, dataspace, data
//
// Version 1 pads name, datatype and dataspace to eight bytes.
func ParseAttribute(data []byte, r *binary.Reader) (*Attribute, error) {
	d := newDecoder(data, r)
	m := &Attribute{Version: d.u8()}
	if m.Version < 1 || m.Version > 3 {
		return nil, fmt.Errorf("%w: attribute version %d", ErrUnsupported, m.Version)
	}
	flags := d.u8()
	if flags&0x03 != 0 {
		return nil, fmt.Errorf("%w: shared attribute datatype or dataspace", ErrUnsupported)
	}
	nameLen, typeLen, spaceLen := int(d.u16()), int(d.u16()), int(d.u16())
	if m.Version == 3 {
		d.skip(1)
	}

	field := func(n int) []byte {
		b := d.bytes(n)
		if m.Version == 1 && n%8 != 0 {
			d.skip(8 - n%8)
		}
		return b
	}
	name, typeBytes, spaceBytes := field(nameLen), field(typeLen), field(spaceLen)
	if d.err != nil {
		return nil, d.err
	}
	m.Name = string(trimNUL(name))

	var err error
	if m.Datatype, err = ParseDatatype(typeBytes); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
	}
	if m.Dataspace, err = ParseDataspace(spaceBytes, r); err != nil {
		return nil, fmt.Errorf("attribute %q: %w", m.Name, err)
	}

	size := int(m.Dataspace.NumElements()) * int(m.Datatype.Size)
	if m.Data = d.bytes(size); d.err != nil {
		return nil, fmt.Errorf("attribute %q data: %w", m.Name, d.err)
	}
	return m, nil
}
