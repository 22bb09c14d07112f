package testdump

import (
	"encoding/binary"
	"fmt"
	"math"
)

// cdfBuf appends big-endian fields with the widths of one CDF version.
type cdfBuf struct {
	b       []byte
	version int
}

func (c *cdfBuf) u32(v uint32) { c.b = binary.BigEndian.AppendUint32(c.b, v) }
func (c *cdfBuf) u64(v uint64) { c.b = binary.BigEndian.AppendUint64(c.b, v) }

func (c *cdfBuf) number(n int) {
	if c.version == 5 {
		c.u64(uint64(n))
	} else {
		c.u32(uint32(n))
	}
}

func (c *cdfBuf) pad4() {
	for len(c.b)%4 != 0 {
		c.b = append(c.b, 0)
	}
}

func (c *cdfBuf) name(s string) {
	c.number(len(s))
	c.b = append(c.b, s...)
	c.pad4()
}

func (c *cdfBuf) attrs(attrs []Attr) error {
	if len(attrs) == 0 {
		c.u32(0)
		c.number(0)
		return nil
	}
	c.u32(0x0c)
	c.number(len(attrs))
	for _, a := range attrs {
		c.name(a.Name)
		switch v := a.Value.(type) {
		case int:
			c.u32(4)
			c.number(1)
			c.u32(uint32(int32(v)))
		case float64:
			c.u32(6)
			c.number(1)
			c.u64(math.Float64bits(v))
		case string:
			c.u32(2)
			c.number(len(v))
			c.b = append(c.b, v...)
			c.pad4()
		default:
			return fmt.Errorf("attribute %q: unsupported value %T", a.Name, a.Value)
		}
	}
	return nil
}

type cdfVar struct {
	v      Var
	dimIDs []int
	typ    uint32
	size   int // element width
	count  int // elements per record, or in total for fixed variables
	record bool
	begin  uint64
}

// CDF encodes d as a NetCDF classic file of the given version (1, 2 or 5).
// A dimension named "t" that leads every variable using it becomes the
// unlimited record dimension. Text variables get a "<name>_len" dimension.
func (d *Dump) CDF(version int) ([]byte, error) {
	if version != 1 && version != 2 && version != 5 {
		return nil, fmt.Errorf("CDF version %d", version)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}

	names, lens := d.dimensions()
	unlimited := -1
	for i, name := range names {
		if name == "t" {
			unlimited = i
		}
	}
	for _, v := range d.Vars {
		for i, name := range v.Dims {
			if name == "t" && i != 0 {
				unlimited = -1
			}
		}
	}
	ids := map[string]int{}
	for i, name := range names {
		ids[name] = i
	}

	var vars []*cdfVar
	for _, v := range d.Vars {
		cv := &cdfVar{v: v, typ: 6, size: 8, count: 1}
		switch {
		case v.Text != "":
			dim := v.Name + "_len"
			ids[dim] = len(names)
			names = append(names, dim)
			lens[dim] = len(v.Text)
			cv.dimIDs = []int{ids[dim]}
			cv.typ, cv.size, cv.count = 2, 1, len(v.Text)
		default:
			if v.Int {
				cv.typ, cv.size = 4, 4
			}
			for i, name := range v.Dims {
				cv.dimIDs = append(cv.dimIDs, ids[name])
				if i == 0 && ids[name] == unlimited {
					cv.record = true
					continue
				}
				cv.count *= v.Shape[i]
			}
		}
		vars = append(vars, cv)
	}

	numRecs := 0
	if unlimited >= 0 {
		numRecs = lens[names[unlimited]]
	}
	var nrecVars int
	for _, cv := range vars {
		if cv.record {
			nrecVars++
		}
	}

	encode := func() (*cdfBuf, error) {
		c := &cdfBuf{version: version}
		c.b = append(c.b, 'C', 'D', 'F', byte(version))
		c.number(numRecs)
		if len(names) == 0 {
			c.u32(0)
			c.number(0)
		} else {
			c.u32(0x0a)
			c.number(len(names))
			for i, name := range names {
				c.name(name)
				if i == unlimited {
					c.number(0)
				} else {
					c.number(lens[name])
				}
			}
		}
		if err := c.attrs(d.Attrs); err != nil {
			return nil, err
		}
		if len(vars) == 0 {
			c.u32(0)
			c.number(0)
			return c, nil
		}
		c.u32(0x0b)
		c.number(len(vars))
		for _, cv := range vars {
			c.name(cv.v.Name)
			c.number(len(cv.dimIDs))
			for _, id := range cv.dimIDs {
				c.number(id)
			}
			attrs := cv.v.Attrs
			if err := c.attrs(attrs); err != nil {
				return nil, err
			}
			c.u32(cv.typ)
			c.number(vsize(cv))
			if version == 1 {
				c.u32(uint32(cv.begin))
			} else {
				c.u64(cv.begin)
			}
		}
		return c, nil
	}

	// The header size does not depend on the begin offsets.
	head, err := encode()
	if err != nil {
		return nil, err
	}
	pos := uint64(len(head.b))
	for _, cv := range vars {
		if !cv.record {
			cv.begin = pos
			pos += uint64(vsize(cv))
		}
	}
	recStart := pos
	recSize := uint64(0)
	for _, cv := range vars {
		if cv.record {
			cv.begin = recStart + recSize
			recSize += uint64(vsize(cv))
		}
	}
	if nrecVars == 1 {
		for _, cv := range vars {
			if cv.record {
				recSize = uint64(cv.count * cv.size)
			}
		}
	}
	if head, err = encode(); err != nil {
		return nil, err
	}

	out := head.b
	grow := func(n uint64) {
		if uint64(len(out)) < n {
			out = append(out, make([]byte, n-uint64(len(out)))...)
		}
	}
	grow(recStart + uint64(numRecs)*recSize)
	for _, cv := range vars {
		data := cv.bytes()
		if !cv.record {
			copy(out[cv.begin:], data)
			continue
		}
		per := cv.count * cv.size
		for r := 0; r < numRecs; r++ {
			copy(out[cv.begin+uint64(r)*recSize:], data[r*per:(r+1)*per])
		}
	}
	return out, nil
}

// vsize is the padded size of one record, or of the whole fixed variable.
func vsize(cv *cdfVar) int {
	return (cv.count*cv.size + 3) &^ 3
}

func (cv *cdfVar) bytes() []byte {
	if cv.v.Text != "" {
		return []byte(cv.v.Text)
	}
	var b []byte
	for _, x := range cv.v.Data {
		if cv.typ == 4 {
			b = binary.BigEndian.AppendUint32(b, uint32(int32(x)))
		} else {
			b = binary.BigEndian.AppendUint64(b, math.Float64bits(x))
		}
	}
	return b
}
