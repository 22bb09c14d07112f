package message

import "fmt"

// Class is the datatype class in the low nibble of the first byte.
type Class uint8

const (
	ClassFixedPoint Class = 0
	ClassFloatPoint Class = 1
	ClassTime       Class = 2
	ClassString     Class = 3
	ClassBitfield   Class = 4
	ClassOpaque     Class = 5
	ClassCompound   Class = 6
	ClassReference  Class = 7
	ClassEnum       Class = 8
	ClassVarLen     Class = 9
	ClassArray      Class = 10
)

var classNames = [...]string{
	"integer", "float", "time", "string", "bitfield", "opaque",
	"compound", "reference", "enum", "vlen", "array",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// StringPadding is how fixed-length strings fill unused bytes.
type StringPadding uint8

const (
	PadNullTerm StringPadding = 0
	PadNullPad  StringPadding = 1
	PadSpacePad StringPadding = 2
)

// Datatype describes the element encoding of a dataset or attribute.
type Datatype struct {
	Class   Class
	Version uint8
	Size    uint32

	BigEndian bool
	Signed    bool

	// Fixed and floating point.
	BitOffset    uint16
	BitPrecision uint16

	Padding StringPadding
	CharSet uint8

	// VarLenString is set for variable-length strings; other variable-length
	// types are sequences of Base.
	VarLenString bool

	// Base is the element type of vlen, array and enum types.
	Base      *Datatype
	ArrayDims []uint32

	// Members of compound types.
	Members []Member

	encodedLen int
}

// Member is one field of a compound datatype.
type Member struct {
	Name   string
	Offset uint32
	Type   *Datatype
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsString reports whether elements decode to text.
func (m *Datatype) IsString() bool {
	return m.Class == ClassString || (m.Class == ClassVarLen && m.VarLenString)
}

// IsNumeric reports whether elements decode to numbers.
func (m *Datatype) IsNumeric() bool {
	return m.Class == ClassFixedPoint || m.Class == ClassFloatPoint || m.Class == ClassEnum
}

// EncodedLen is the number of message bytes the datatype occupied.
func (m *Datatype) EncodedLen() int { return m.encodedLen }

// ParseDatatype decodes a datatype message body.
func ParseDatatype(data []byte) (*Datatype, error) {
	d := newDecoder(data, nil)
	dt := decodeDatatype(d)
	if d.err != nil {
		return nil, fmt.Errorf("datatype: %w", d.err)
	}
	return dt, nil
}

func decodeDatatype(d *decoder) *Datatype {
	start := d.off
	head := d.u8()
	bits := d.uintN(3)
	dt := &Datatype{
		Class:   Class(head & 0x0f),
		Version: head >> 4,
		Size:    d.u32(),
	}

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.BigEndian = bits&0x01 != 0
		dt.Signed = bits&0x08 != 0
		dt.BitOffset = d.u16()
		dt.BitPrecision = d.u16()
	case ClassFloatPoint:
		dt.BigEndian = bits&0x01 != 0
		dt.BitOffset = d.u16()
		dt.BitPrecision = d.u16()
		d.skip(8)
	case ClassTime:
		dt.BigEndian = bits&0x01 != 0
		d.skip(2)
	case ClassString:
		dt.Padding = StringPadding(bits & 0x0f)
		dt.CharSet = uint8(bits>>4) & 0x0f
	case ClassOpaque:
		tagLen := int(bits & 0xff)
		d.skip(tagLen)
	case ClassReference:
	case ClassVarLen:
		dt.VarLenString = bits&0x0f == 1
		dt.Padding = StringPadding(bits>>4) & 0x0f
		dt.CharSet = uint8(bits>>8) & 0x0f
		dt.Base = decodeDatatype(d)
	case ClassArray:
		n := int(d.u8())
		if dt.Version < 3 {
			d.skip(3)
		}
		dt.ArrayDims = make([]uint32, n)
		for i := range dt.ArrayDims {
			dt.ArrayDims[i] = d.u32()
		}
		if dt.Version < 3 {
			d.skip(4 * n)
		}
		dt.Base = decodeDatatype(d)
	case ClassEnum:
		n := int(bits & 0xffff)
		dt.Base = decodeDatatype(d)
		for i := 0; i < n; i++ {
			nameStart := d.off
			d.cstring()
			if dt.Version < 3 {
				d.pad8(nameStart)
			}
		}
		if dt.Base != nil {
			d.skip(n * int(dt.Base.Size))
		}
	case ClassCompound:
		n := int(bits & 0xffff)
		for i := 0; i < n && d.err == nil; i++ {
			dt.Members = append(dt.Members, decodeMember(d, dt.Version, dt.Size))
		}
	default:
		if d.err == nil {
			d.err = fmt.Errorf("%w: datatype class %d", ErrUnsupported, dt.Class)
		}
	}
	dt.encodedLen = d.off - start
	return dt
}

func decodeMember(d *decoder, version uint8, size uint32) Member {
	nameStart := d.off
	m := Member{Name: d.cstring()}
	switch version {
	case 1:
		d.pad8(nameStart)
		m.Offset = d.u32()
		d.skip(1 + 3 + 4 + 4 + 16) // dimensionality, reserved, permutation, reserved, dims
	case 2:
		d.pad8(nameStart)
		m.Offset = d.u32()
	default:
		m.Offset = uint32(d.uintN(offsetWidth(uint64(size))))
	}
	m.Type = decodeDatatype(d)
	return m
}

// offsetWidth is the number of bytes needed to encode values up to n.
func offsetWidth(n uint64) int {
	w := 1
	for n > 0xff {
		n >>= 8
		w++
	}
	return w
}
