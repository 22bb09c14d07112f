package message

import (
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
)

// DataspaceKind distinguishes scalar, simple and null dataspaces.
type DataspaceKind uint8

const (
	DataspaceScalar DataspaceKind = 0
	DataspaceSimple DataspaceKind = 1
	DataspaceNull   DataspaceKind = 2
)

// Dataspace is the shape of a dataset or attribute.
type Dataspace struct {
	Version    uint8
	Kind       DataspaceKind
	Dimensions []uint64
	MaxDims    []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// Rank is the number of dimensions; zero for scalars.
func (m *Dataspace) Rank() int { return len(m.Dimensions) }

// NumElements is the number of elements the dataspace selects.
func (m *Dataspace) NumElements() uint64 {
	switch m.Kind {
	case DataspaceNull:
		return 0
	case DataspaceScalar:
		return 1
	}
	n := uint64(1)
	for _, d := range m.Dimensions {
		n *= d
	}
	return n
}

// ParseDataspace decodes a dataspace message body.
//
//	v1: version, rank, flags, reserved(5), dims, [max dims]
//	v2: version, rank, flags, kind, dims, [max dims]
func ParseDataspace(data []byte, r *binary.Reader) (*Dataspace, error) {
	d := newDecoder(data, r)
	m := &Dataspace{Version: d.u8()}
	rank := int(d.u8())
	flags := d.u8()

	switch m.Version {
	case 1:
		d.skip(5)
		m.Kind = DataspaceSimple
		if rank == 0 {
			m.Kind = DataspaceScalar
		}
	case 2:
		m.Kind = DataspaceKind(d.u8())
	default:
		return nil, fmt.Errorf("%w: dataspace version %d", ErrUnsupported, m.Version)
	}
	if m.Kind != DataspaceSimple {
		return m, d.err
	}

	m.Dimensions = make([]uint64, rank)
	for i := range m.Dimensions {
		m.Dimensions[i] = d.length()
	}
	if flags&0x01 != 0 {
		m.MaxDims = make([]uint64, rank)
		for i := range m.MaxDims {
			m.MaxDims[i] = d.length()
		}
	}
	return m, d.err
}
