package testdump

import (
	"fmt"
	"math"
	"sort"

	"github.com/robert-malhotra/go-boutdata/internal/alloc"
	binpkg "github.com/robert-malhotra/go-boutdata/internal/binary"
)

// Storage selects the dataset layout for variables with dimensions.
type Storage int

const (
	Contiguous Storage = iota
	Compact
	Chunked
)

// HDF5Options controls how a dump is laid out as HDF5.
type HDF5Options struct {
	// Modern writes a version 2 superblock, version 2 object headers and
	// link messages. Otherwise a version 0 superblock, version 1 headers
	// and a symbol table root group are written.
	Modern bool
	// Storage applies to every variable with dimensions. Scalars are
	// always contiguous or compact.
	Storage Storage
	// Chunk is the chunk length on every axis; zero halves each axis.
	Chunk int
	// Filters is the chunk filter pipeline, in write order.
	Filters []uint16
	// NetCDF4 adds dimension scales and DIMENSION_LIST attributes the way
	// the NetCDF-4 library does.
	NetCDF4 bool
	// UserBlock places the superblock this many bytes into the file.
	UserBlock int
}

const undef = math.MaxUint64

const (
	msgDataspace    = 0x01
	msgLinkInfo     = 0x02
	msgDatatype     = 0x03
	msgLink         = 0x06
	msgLayout       = 0x08
	msgGroupInfo    = 0x0a
	msgFilters      = 0x0b
	msgAttribute    = 0x0c
	msgSymbolTable  = 0x11
	netcdfDimPrefix = "This is a netCDF dimension but not a netCDF variable."
)

type message struct {
	typ  uint16
	body []byte
}

type h5 struct {
	buf   []byte
	space alloc.Allocator
	o     HDF5Options
}

// alloc reserves n zero bytes at an eight byte boundary.
func (w *h5) alloc(n int) uint64 {
	addr := w.space.Alloc(uint64(n), 8, "")
	w.buf = append(w.buf, make([]byte, int(w.space.EOF())-len(w.buf))...)
	return addr
}

func (w *h5) write(b []byte) uint64 {
	addr := w.alloc(len(b))
	copy(w.buf[addr:], b)
	return addr
}

type member struct {
	name string
	addr uint64
}

// HDF5 encodes d as an HDF5 file image.
func (d *Dump) HDF5(o HDF5Options) ([]byte, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	w := &h5{o: o}
	sbSize := 96
	if o.Modern {
		sbSize = 48
	}
	w.alloc(sbSize)

	var members []member
	scales := map[string]uint64{}
	if o.NetCDF4 {
		names, lens := d.dimensions()
		for _, name := range names {
			addr, err := w.dimensionScale(name, lens[name])
			if err != nil {
				return nil, err
			}
			scales[name] = addr
			members = append(members, member{name, addr})
		}
	}

	for _, v := range d.Vars {
		attrs := v.Attrs
		var extra []message
		if o.NetCDF4 && len(v.Dims) > 0 {
			extra = append(extra, w.dimensionList(v.Dims, scales))
		}
		addr, err := w.dataset(v, attrs, extra)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name, err)
		}
		members = append(members, member{v.Name, addr})
	}

	var rootAttrs []message
	for _, a := range d.Attrs {
		m, err := w.attribute(a)
		if err != nil {
			return nil, err
		}
		rootAttrs = append(rootAttrs, m)
	}

	if o.Modern {
		w.modernRoot(members, rootAttrs)
	} else {
		w.classicRoot(members, rootAttrs)
	}

	if err := w.space.Validate(); err != nil {
		return nil, err
	}
	if o.UserBlock > 0 {
		return append(make([]byte, o.UserBlock), w.buf...), nil
	}
	return w.buf, nil
}

func (w *h5) header(msgs []message) uint64 {
	if w.o.Modern {
		return w.headerV2(msgs)
	}
	return w.headerV1(msgs)
}

func (w *h5) headerV1(msgs []message) uint64 {
	var body enc
	for _, m := range msgs {
		n := pad8(len(m.body))
		body.u16(m.typ)
		body.u16(uint16(n))
		body.zeros(4)
		body.raw(m.body)
		body.zeros(n - len(m.body))
	}
	var h enc
	h.u8(1)
	h.u8(0)
	h.u16(uint16(len(msgs)))
	h.u32(1)
	h.u32(uint32(len(body)))
	h.zeros(4)
	h.raw(body)
	return w.write(h)
}

func (w *h5) headerV2(msgs []message) uint64 {
	var body enc
	for _, m := range msgs {
		body.u8(uint8(m.typ))
		body.u16(uint16(len(m.body)))
		body.u8(0)
		body.raw(m.body)
	}
	var h enc
	h.raw([]byte("OHDR"))
	h.u8(2)
	h.u8(0x02)
	h.u32(uint32(len(body)))
	h.raw(body)
	h.u32(binpkg.Lookup3Checksum(h))
	return w.write(h)
}

func (w *h5) dataspace(shape []int) []byte {
	var e enc
	if w.o.Modern {
		e.u8(2)
		e.u8(uint8(len(shape)))
		e.u8(0)
		if len(shape) == 0 {
			e.u8(0)
		} else {
			e.u8(1)
		}
	} else {
		e.u8(1)
		e.u8(uint8(len(shape)))
		e.u8(0)
		e.zeros(5)
	}
	for _, n := range shape {
		e.u64(uint64(n))
	}
	return e
}

func float64Type() []byte {
	var e enc
	e.u8(0x11)
	e.raw([]byte{0x20, 63, 0})
	e.u32(8)
	e.u16(0)
	e.u16(64)
	e.raw([]byte{52, 11, 0, 52})
	e.u32(1023)
	return e
}

func float32Type() []byte {
	var e enc
	e.u8(0x11)
	e.raw([]byte{0x20, 31, 0})
	e.u32(4)
	e.u16(0)
	e.u16(32)
	e.raw([]byte{23, 8, 0, 23})
	e.u32(127)
	return e
}

func int32Type() []byte {
	var e enc
	e.u8(0x10)
	e.raw([]byte{0x08, 0, 0})
	e.u32(4)
	e.u16(0)
	e.u16(32)
	return e
}

func stringType(n int) []byte {
	var e enc
	e.u8(0x13)
	e.raw([]byte{0, 0, 0})
	e.u32(uint32(max(n, 1)))
	return e
}

// referenceListType is a variable-length sequence of object references.
func referenceListType() []byte {
	var e enc
	e.u8(0x19)
	e.raw([]byte{0, 0, 0})
	e.u32(16)
	e.u8(0x17)
	e.raw([]byte{0, 0, 0})
	e.u32(8)
	return e
}

func (w *h5) attribute(a Attr) (message, error) {
	var (
		dt, data []byte
		shape    []int
	)
	if w.o.NetCDF4 {
		shape = []int{1}
	}
	switch v := a.Value.(type) {
	case int:
		dt, data = int32Type(), elements([]float64{float64(v)}, true)
	case float64:
		dt, data = float64Type(), elements([]float64{v}, false)
	case string:
		dt, data = stringType(len(v)), []byte(v)
		if len(v) == 0 {
			data = []byte{0}
		}
		shape = nil
	default:
		return message{}, fmt.Errorf("attribute %q: unsupported value %T", a.Name, a.Value)
	}
	return w.attributeMessage(a.Name, dt, w.dataspace(shape), data), nil
}

func (w *h5) attributeMessage(name string, dt, space, data []byte) message {
	var e enc
	nameBytes := append([]byte(name), 0)
	if w.o.Modern {
		e.u8(3)
		e.u8(0)
		e.u16(uint16(len(nameBytes)))
		e.u16(uint16(len(dt)))
		e.u16(uint16(len(space)))
		e.u8(0)
		e.raw(nameBytes)
		e.raw(dt)
		e.raw(space)
	} else {
		e.u8(1)
		e.u8(0)
		e.u16(uint16(len(nameBytes)))
		e.u16(uint16(len(dt)))
		e.u16(uint16(len(space)))
		for _, f := range [][]byte{nameBytes, dt, space} {
			e.raw(f)
			e.pad8()
		}
	}
	e.raw(data)
	return message{msgAttribute, e}
}

func (w *h5) dataset(v Var, attrs []Attr, extra []message) (uint64, error) {
	var (
		dt, data []byte
		shape    = v.Shape
		elem     = 8
	)
	switch {
	case v.Text != "":
		dt, data, shape, elem = stringType(len(v.Text)), []byte(v.Text), nil, max(len(v.Text), 1)
		if len(v.Text) == 0 {
			data = []byte{0}
		}
	case v.Int:
		dt, data, elem = int32Type(), elements(v.Data, true), 4
	default:
		dt, data = float64Type(), elements(v.Data, false)
	}

	msgs := []message{
		{msgDataspace, w.dataspace(shape)},
		{msgDatatype, dt},
	}
	storage := w.o.Storage
	if len(shape) == 0 && storage == Chunked {
		storage = Contiguous
	}
	switch storage {
	case Compact:
		var e enc
		e.u8(3)
		e.u8(0)
		e.u16(uint16(len(data)))
		e.raw(data)
		msgs = append(msgs, message{msgLayout, e})
	case Chunked:
		layout, pipeline, err := w.chunked(shape, data, elem)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, message{msgLayout, layout})
		if pipeline != nil {
			msgs = append(msgs, message{msgFilters, pipeline})
		}
	default:
		addr := w.write(data)
		var e enc
		e.u8(3)
		e.u8(1)
		e.u64(addr)
		e.u64(uint64(len(data)))
		msgs = append(msgs, message{msgLayout, e})
	}
	for _, a := range attrs {
		m, err := w.attribute(a)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, m)
	}
	msgs = append(msgs, extra...)
	return w.header(msgs), nil
}

// chunked writes every chunk of a dataset and the version 1 B-tree that
// indexes them, and returns the layout and filter pipeline messages.
func (w *h5) chunked(shape []int, data []byte, elem int) (layout, pipeline []byte, err error) {
	rank := len(shape)
	chunk := make([]int, rank)
	grid := make([]int, rank)
	nchunks := 1
	for d, n := range shape {
		chunk[d] = w.o.Chunk
		if chunk[d] <= 0 {
			chunk[d] = max((n+1)/2, 1)
		}
		grid[d] = max((n+chunk[d]-1)/chunk[d], 1)
		nchunks *= grid[d]
	}
	chunkElems := 1
	for _, c := range chunk {
		chunkElems *= c
	}

	type stored struct {
		offset []int
		addr   uint64
		size   int
	}
	var chunks []stored
	pos := make([]int, rank)
	for i := 0; i < nchunks; i++ {
		origin := make([]int, rank)
		for d := range origin {
			origin[d] = pos[d] * chunk[d]
		}
		raw := make([]byte, chunkElems*elem)
		local := make([]int, rank)
		for k := 0; k < chunkElems; k++ {
			src, inside := 0, true
			for d := 0; d < rank; d++ {
				g := origin[d] + local[d]
				if g >= shape[d] {
					inside = false
					break
				}
				src = src*shape[d] + g
			}
			if inside {
				copy(raw[k*elem:(k+1)*elem], data[src*elem:])
			}
			for d := rank - 1; d >= 0; d-- {
				local[d]++
				if local[d] < chunk[d] {
					break
				}
				local[d] = 0
			}
		}
		packed, err := encodeFilters(w.o.Filters, raw, elem)
		if err != nil {
			return nil, nil, err
		}
		chunks = append(chunks, stored{offset: origin, addr: w.write(packed), size: len(packed)})

		for d := rank - 1; d >= 0; d-- {
			pos[d]++
			if pos[d] < grid[d] {
				break
			}
			pos[d] = 0
		}
	}

	var tree enc
	tree.raw([]byte("TREE"))
	tree.u8(1)
	tree.u8(0)
	tree.u16(uint16(len(chunks)))
	tree.u64(undef)
	tree.u64(undef)
	key := func(size int, offset []int) {
		tree.u32(uint32(size))
		tree.u32(0)
		for _, o := range offset {
			tree.u64(uint64(o))
		}
		tree.u64(0)
	}
	for _, c := range chunks {
		key(c.size, c.offset)
		tree.u64(c.addr)
	}
	end := make([]int, rank)
	for d := range end {
		end[d] = grid[d] * chunk[d]
	}
	key(0, end)
	treeAddr := w.write(tree)

	var l enc
	l.u8(3)
	l.u8(2)
	l.u8(uint8(rank + 1))
	l.u64(treeAddr)
	for _, c := range chunk {
		l.u32(uint32(c))
	}
	l.u32(uint32(elem))

	if len(w.o.Filters) == 0 {
		return l, nil, nil
	}
	var p enc
	p.u8(1)
	p.u8(uint8(len(w.o.Filters)))
	p.zeros(6)
	for _, id := range w.o.Filters {
		cd := clientData(id, elem)
		p.u16(id)
		p.u16(0)
		p.u16(0)
		p.u16(uint16(len(cd)))
		for _, v := range cd {
			p.u32(v)
		}
		if len(cd)%2 == 1 {
			p.u32(0)
		}
	}
	return l, p, nil
}

// dimensionScale writes a NetCDF-4 dimension without a coordinate
// variable: an unallocated float32 dataset tagged as a dimension scale.
func (w *h5) dimensionScale(name string, n int) (uint64, error) {
	var e enc
	e.u8(3)
	e.u8(1)
	e.u64(undef)
	e.u64(uint64(n * 4))
	msgs := []message{
		{msgDataspace, w.dataspace([]int{n})},
		{msgDatatype, float32Type()},
		{msgLayout, e},
	}
	for _, a := range []Attr{
		{Name: "CLASS", Value: "DIMENSION_SCALE"},
		{Name: "NAME", Value: fmt.Sprintf("%s%10d", netcdfDimPrefix, n)},
	} {
		m, err := w.attribute(a)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, m)
	}
	return w.header(msgs), nil
}

// dimensionList writes one global heap collection holding a reference to
// each dimension scale and returns the DIMENSION_LIST attribute.
func (w *h5) dimensionList(dims []string, scales map[string]uint64) message {
	var objs enc
	for i, name := range dims {
		objs.u16(uint16(i + 1))
		objs.u16(1)
		objs.zeros(4)
		objs.u64(8)
		objs.u64(scales[name])
	}
	var col enc
	col.raw([]byte("GCOL"))
	col.u8(1)
	col.zeros(3)
	col.u64(uint64(16 + len(objs) + 16))
	col.raw(objs)
	col.zeros(16)
	heapAddr := w.write(col)

	var data enc
	for i := range dims {
		data.u32(1)
		data.u64(heapAddr)
		data.u32(uint32(i + 1))
	}
	return w.attributeMessage("DIMENSION_LIST", referenceListType(), w.dataspace([]int{len(dims)}), data)
}

func (w *h5) classicRoot(members []member, attrs []message) {
	sort.Slice(members, func(i, j int) bool { return members[i].name < members[j].name })

	// Local heap data: offset 0 is the empty string.
	names := enc{0}
	names.pad8()
	offsets := make([]uint64, len(members))
	for i, m := range members {
		offsets[i] = uint64(len(names))
		names.raw([]byte(m.name))
		names.u8(0)
		names.pad8()
	}
	dataAddr := w.write(names)
	var lh enc
	lh.raw([]byte("HEAP"))
	lh.u8(0)
	lh.zeros(3)
	lh.u64(uint64(len(names)))
	lh.u64(undef)
	lh.u64(dataAddr)
	heapAddr := w.write(lh)

	// Eight entries per symbol node, one leaf B-tree node over them.
	const perNode = 8
	var snods []uint64
	var lastKey []uint64
	for start := 0; start < len(members) || start == 0; start += perNode {
		end := min(start+perNode, len(members))
		var s enc
		s.raw([]byte("SNOD"))
		s.u8(1)
		s.u8(0)
		s.u16(uint16(end - start))
		for i := start; i < end; i++ {
			s.u64(offsets[i])
			s.u64(members[i].addr)
			s.u32(0)
			s.zeros(4 + 16)
		}
		snods = append(snods, w.write(s))
		if end > start {
			lastKey = append(lastKey, offsets[end-1])
		} else {
			lastKey = append(lastKey, 0)
		}
		if end >= len(members) {
			break
		}
	}
	var t enc
	t.raw([]byte("TREE"))
	t.u8(0)
	t.u8(0)
	t.u16(uint16(len(snods)))
	t.u64(undef)
	t.u64(undef)
	t.u64(0)
	for i, addr := range snods {
		t.u64(addr)
		t.u64(lastKey[i])
	}
	treeAddr := w.write(t)

	var st enc
	st.u64(treeAddr)
	st.u64(heapAddr)
	root := w.header(append([]message{{msgSymbolTable, st}}, attrs...))

	var sb enc
	sb.raw(superblockSignature)
	sb.raw([]byte{0, 0, 0, 0, 0, 8, 8, 0})
	sb.u16(4)
	sb.u16(16)
	sb.u32(0)
	sb.u64(w.base())
	sb.u64(undef)
	sb.u64(uint64(len(w.buf)))
	sb.u64(undef)
	sb.u64(0)
	sb.u64(root)
	sb.u32(1)
	sb.zeros(4)
	sb.u64(treeAddr)
	sb.u64(heapAddr)
	copy(w.buf, sb)
}

func (w *h5) modernRoot(members []member, attrs []message) {
	var li enc
	li.u8(0)
	li.u8(0)
	li.u64(undef)
	li.u64(undef)
	msgs := []message{{msgLinkInfo, li}, {msgGroupInfo, []byte{0, 0}}}
	for _, m := range members {
		var l enc
		l.u8(1)
		l.u8(0)
		l.u8(uint8(len(m.name)))
		l.raw([]byte(m.name))
		l.u64(m.addr)
		msgs = append(msgs, message{msgLink, l})
	}
	root := w.header(append(msgs, attrs...))

	var sb enc
	sb.raw(superblockSignature)
	sb.raw([]byte{2, 8, 8, 0})
	sb.u64(w.base())
	sb.u64(undef)
	sb.u64(uint64(len(w.buf)))
	sb.u64(root)
	sb.u32(binpkg.Lookup3Checksum(sb))
	copy(w.buf, sb)
}

// base is the superblock's own address, which the library records as the
// base address when a user block is present.
func (w *h5) base() uint64 { return uint64(w.o.UserBlock) }

var superblockSignature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}
