// Package message decodes the HDF5 object header messages a reader of
// array datasets needs: dataspace, datatype, layout, filter pipeline,
// attributes, and the link and symbol table messages that describe groups.
package message

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
)

// ErrTruncated is returned when a message body ends before its fields do.
var ErrTruncated = errors.New("message truncated")

// ErrUnsupported marks message encodings this reader does not implement.
var ErrUnsupported = errors.New("unsupported message encoding")

// Type is a header message type number.
type Type uint16

const (
	TypeNIL            Type = 0x0000
	TypeDataspace      Type = 0x0001
	TypeLinkInfo       Type = 0x0002
	TypeDatatype       Type = 0x0003
	TypeFillValue      Type = 0x0005
	TypeLink           Type = 0x0006
	TypeDataLayout     Type = 0x0008
	TypeGroupInfo      Type = 0x000A
	TypeFilterPipeline Type = 0x000B
	TypeAttribute      Type = 0x000C
	TypeContinuation   Type = 0x0010
	TypeSymbolTable    Type = 0x0011
	TypeAttributeInfo  Type = 0x0015
)

// Message is a decoded header message.
type Message interface {
	Type() Type
}

// Parse decodes the body of one header message. Types the reader has no use
// for come back as *Unknown.
func Parse(typ Type, data []byte, r *binary.Reader) (Message, error) {
	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = ParseDataspace(data, r)
	case TypeDatatype:
		msg, err = ParseDatatype(data)
	case TypeDataLayout:
		msg, err = parseDataLayout(data, r)
	case TypeFilterPipeline:
		msg, err = parseFilterPipeline(data)
	case TypeAttribute:
		msg, err = ParseAttribute(data, r)
	case TypeLink:
		msg, err = ParseLink(data, r)
	case TypeSymbolTable:
		msg, err = parseSymbolTable(data, r)
	case TypeLinkInfo:
		msg, err = parseLinkInfo(data, r)
	case TypeAttributeInfo:
		msg, err = parseAttributeInfo(data, r)
	case TypeContinuation:
		msg, err = parseContinuation(data, r)
	default:
		return &Unknown{typ: typ, Data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("message 0x%04x: %w", uint16(typ), err)
	}
	return msg, nil
}

// Unknown carries the raw body of a message type the reader skips.
type Unknown struct {
	typ  Type
	Data []byte
}

func (m *Unknown) Type() Type { return m.typ }

// Continuation points at the next block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeContinuation }

func parseContinuation(data []byte, r *binary.Reader) (*Continuation, error) {
	d := newDecoder(data, r)
	m := &Continuation{Offset: d.offset(), Length: d.length()}
	return m, d.err
}

// SymbolTable locates an old-style group's B-tree and local heap.
type SymbolTable struct {
	BTreeAddress uint64
	HeapAddress  uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, r *binary.Reader) (*SymbolTable, error) {
	d := newDecoder(data, r)
	m := &SymbolTable{BTreeAddress: d.offset(), HeapAddress: d.offset()}
	return m, d.err
}

// LinkInfo locates the dense link storage of a new-style group. The heap
// address is undefined while the group's links are still compact.
type LinkInfo struct {
	FractalHeapAddress uint64
	NameIndexAddress   uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

func parseLinkInfo(data []byte, r *binary.Reader) (*LinkInfo, error) {
	d := newDecoder(data, r)
	d.skip(1)
	if flags := d.u8(); flags&0x01 != 0 {
		d.skip(8)
	}
	m := &LinkInfo{FractalHeapAddress: d.offset(), NameIndexAddress: d.offset()}
	return m, d.err
}

// AttributeInfo locates the dense attribute storage of an object.
type AttributeInfo struct {
	FractalHeapAddress uint64
	NameIndexAddress   uint64
}

func (m *AttributeInfo) Type() Type { return TypeAttributeInfo }

func parseAttributeInfo(data []byte, r *binary.Reader) (*AttributeInfo, error) {
	d := newDecoder(data, r)
	d.skip(1)
	if flags := d.u8(); flags&0x01 != 0 {
		d.skip(2)
	}
	m := &AttributeInfo{FractalHeapAddress: d.offset(), NameIndexAddress: d.offset()}
	return m, d.err
}
