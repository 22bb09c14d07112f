package message

import "fmt"

// FilterInfo is one stage of a filter pipeline.
type FilterInfo struct {
	ID         uint16
	Name       string
	Optional   bool
	ClientData []uint32
}

// FilterPipeline lists the filters applied to each chunk, in write order.
type FilterPipeline struct {
	Version uint8
	Filters []FilterInfo
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	d := newDecoder(data, nil)
	m := &FilterPipeline{Version: d.u8()}
	n := int(d.u8())
	switch m.Version {
	case 1:
		d.skip(6)
	case 2:
	default:
		return nil, fmt.Errorf("%w: filter pipeline version %d", ErrUnsupported, m.Version)
	}

	for i := 0; i < n && d.err == nil; i++ {
		f := FilterInfo{ID: d.u16()}
		nameLen := 0
		if m.Version == 1 || f.ID >= 256 {
			nameLen = int(d.u16())
		}
		f.Optional = d.u16()&0x01 != 0
		values := int(d.u16())
		if nameLen > 0 {
			nameStart := d.off
			f.Name = string(trimNUL(d.bytes(nameLen)))
			if m.Version == 1 {
				d.pad8(nameStart)
			}
		}
		f.ClientData = make([]uint32, values)
		for j := range f.ClientData {
			f.ClientData[j] = d.u32()
		}
		if m.Version == 1 && values%2 == 1 {
			d.skip(4)
		}
		m.Filters = append(m.Filters, f)
	}
	if d.err != nil {
		return nil, d.err
	}
	return m, nil
}

func trimNUL(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
