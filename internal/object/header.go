// Package object reads HDF5 object headers: the message lists that describe
// every group and dataset.
//
// Version 1 headers start with the version byte and align each message to
// eight bytes. Version 2 headers start with "OHDR", pack messages tightly and
// end every block with a checksum. Both chain overflow messages through
// continuation messages, which Read follows transparently.
package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/message"
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
)

// Header is a decoded object header.
type Header struct {
	Version  uint8
	Address  uint64
	Messages []message.Message

	// Skipped records messages that failed to decode. They only matter if
	// the caller needs that message.
	Skipped []error
}

// Read decodes the object header at address.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	peek, err := hr.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}

	h := &Header{Address: address}
	seen := map[uint64]bool{address: true}
	switch {
	case string(peek) == "OHDR":
		h.Version = 2
		err = readV2(hr, h, seen)
	case peek[0] == 1:
		h.Version = 1
		err = readV1(hr, h, seen)
	default:
		return nil, fmt.Errorf("%w at %d", ErrInvalidHeader, address)
	}
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", address, err)
	}
	return h, nil
}

// add decodes one message body, following continuations through next.
func (h *Header) add(r *binary.Reader, typ message.Type, data []byte, seen map[uint64]bool,
	next func(*binary.Reader, *message.Continuation) error) error {
	if typ == message.TypeNIL {
		return nil
	}
	msg, err := message.Parse(typ, data, r)
	if err != nil {
		h.Skipped = append(h.Skipped, err)
		return nil
	}
	if cont, ok := msg.(*message.Continuation); ok {
		if seen[cont.Offset] {
			return fmt.Errorf("%w: continuation loop at %d", ErrInvalidHeader, cont.Offset)
		}
		seen[cont.Offset] = true
		return next(r, cont)
	}
	h.Messages = append(h.Messages, msg)
	return nil
}

// Message returns the first message of type typ, or nil.
func (h *Header) Message(typ message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == typ {
			return m
		}
	}
	return nil
}

// Messages returns every message of type typ.
func (h *Header) All(typ message.Type) []message.Message {
	var out []message.Message
	for _, m := range h.Messages {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}

func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Message(message.TypeDataspace).(*message.Dataspace)
	return m
}

func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Message(message.TypeDatatype).(*message.Datatype)
	return m
}

func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.Message(message.TypeDataLayout).(*message.DataLayout)
	return m
}

func (h *Header) FilterPipeline() *message.FilterPipeline {
	m, _ := h.Message(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

func (h *Header) SymbolTable() *message.SymbolTable {
	m, _ := h.Message(message.TypeSymbolTable).(*message.SymbolTable)
	return m
}

func (h *Header) LinkInfo() *message.LinkInfo {
	m, _ := h.Message(message.TypeLinkInfo).(*message.LinkInfo)
	return m
}

func (h *Header) AttributeInfo() *message.AttributeInfo {
	m, _ := h.Message(message.TypeAttributeInfo).(*message.AttributeInfo)
	return m
}

// IsGroup reports whether the header describes a group.
func (h *Header) IsGroup() bool {
	return h.SymbolTable() != nil || h.LinkInfo() != nil || h.Message(message.TypeLink) != nil ||
		(h.Dataspace() == nil && h.Message(message.TypeGroupInfo) != nil)
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.Dataspace() != nil && h.Datatype() != nil && h.DataLayout() != nil
}

// Attributes returns the compact attribute messages in header order.
func (h *Header) Attributes() []*message.Attribute {
	var out []*message.Attribute
	for _, m := range h.All(message.TypeAttribute) {
		out = append(out, m.(*message.Attribute))
	}
	return out
}

// Links returns the compact link messages in header order.
func (h *Header) Links() []*message.Link {
	var out []*message.Link
	for _, m := range h.All(message.TypeLink) {
		out = append(out, m.(*message.Link))
	}
	return out
}
