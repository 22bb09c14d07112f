package hdf5

import (
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/robert-malhotra/go-boutdata/internal/btree"
	"github.com/robert-malhotra/go-boutdata/internal/heap"
	"github.com/robert-malhotra/go-boutdata/internal/message"
	"github.com/robert-malhotra/go-boutdata/internal/object"
)

// Group represents an HDF5 group.
type Group struct {
	file   *File
	path   string
	header *object.Header
}

// link is a group member before it is opened. Soft links carry a target
// path instead of an address.
type link struct {
	name    string
	address uint64
	target  string
}

// Name returns the last component of the group path.
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

// Path returns the full path to this group.
func (g *Group) Path() string {
	return g.path
}

// Members returns the names of the group's children, sorted.
func (g *Group) Members() ([]string, error) {
	links, err := g.links()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.name
	}
	sort.Strings(names)
	return names, nil
}

// OpenGroup opens a group relative to g.
func (g *Group) OpenGroup(relativePath string) (*Group, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	group, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, relativePath)
	}
	return group, nil
}

// OpenDataset opens a dataset relative to g.
func (g *Group) OpenDataset(relativePath string) (*Dataset, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	ds, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, relativePath)
	}
	return ds, nil
}

// Object opens a child relative to g and returns a *Group or a *Dataset.
func (g *Group) Object(relativePath string) (any, error) {
	return g.open(relativePath)
}

func (g *Group) open(relativePath string) (any, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	start := g
	if len(relativePath) > 0 && relativePath[0] == '/' {
		start = g.file.root
	}
	depth := 0
	return start.resolve(splitPath(relativePath), &depth)
}

// resolve walks parts from g, following soft links. depth counts the soft
// links followed so far across the whole lookup.
func (g *Group) resolve(parts []string, depth *int) (any, error) {
	if len(parts) == 0 {
		return g, nil
	}
	name := parts[0]
	l, err := g.child(name)
	if err != nil {
		return nil, err
	}
	full := path.Join(g.path, name)

	var obj any
	if l.target != "" {
		*depth++
		if *depth > g.file.opts.maxLinkDepth {
			return nil, fmt.Errorf("%w: %s", ErrLinkDepth, full)
		}
		base := g
		if l.target[0] == '/' {
			base = g.file.root
		}
		if obj, err = base.resolve(splitPath(l.target), depth); err != nil {
			return nil, fmt.Errorf("soft link %s -> %s: %w", full, l.target, err)
		}
	} else if obj, err = g.file.open(l.address, full); err != nil {
		return nil, fmt.Errorf("opening %s: %w", full, err)
	}

	if len(parts) == 1 {
		return obj, nil
	}
	next, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, full)
	}
	return next.resolve(parts[1:], depth)
}

func (g *Group) child(name string) (link, error) {
	links, err := g.links()
	if err != nil {
		return link{}, err
	}
	for _, l := range links {
		if l.name == name {
			return l, nil
		}
	}
	return link{}, fmt.Errorf("%w: %s", ErrNotFound, path.Join(g.path, name))
}

// links gathers the members from whichever storage the group uses: link
// messages, dense link storage, or a symbol table.
func (g *Group) links() ([]link, error) {
	r := g.file.reader
	var out []link
	for _, m := range g.header.Links() {
		switch m.LinkType {
		case message.LinkHard:
			out = append(out, link{name: m.Name, address: m.Address})
		case message.LinkSoft:
			out = append(out, link{name: m.Name, target: m.Target})
		}
	}

	if li := g.header.LinkInfo(); li != nil && !r.IsUndefinedOffset(li.FractalHeapAddress) {
		dense, err := g.denseLinks(li)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.path, err)
		}
		out = append(out, dense...)
	}

	btreeAddr, heapAddr := uint64(0), uint64(0)
	if st := g.header.SymbolTable(); st != nil {
		btreeAddr, heapAddr = st.BTreeAddress, st.HeapAddress
	} else if g.path == "/" && g.file.superblock.RootBTreeAddress != 0 {
		btreeAddr = g.file.superblock.RootBTreeAddress
		heapAddr = g.file.superblock.RootLocalHeapAddress
	}
	if btreeAddr != 0 && !r.IsUndefinedOffset(btreeAddr) {
		entries, err := btree.ReadGroupEntries(r, btreeAddr, heapAddr)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", g.path, err)
		}
		for _, e := range entries {
			out = append(out, link{name: e.Name, address: e.Address, target: e.SoftLink})
		}
	}
	return out, nil
}

// denseLinks reads link messages out of the fractal heap, using the name
// index (a v2 B-tree of type 5 records: hash(4), heap ID) to find them.
func (g *Group) denseLinks(li *message.LinkInfo) ([]link, error) {
	r := g.file.reader
	fh, err := heap.ReadFractalHeap(r, li.FractalHeapAddress)
	if err != nil {
		return nil, err
	}
	var out []link
	err = btree.WalkV2(r, li.NameIndexAddress, btree.RecordLinkName, func(rec []byte) error {
		if len(rec) < 4+fh.IDLength() {
			return errors.New("short link name record")
		}
		obj, err := fh.Object(rec[4 : 4+fh.IDLength()])
		if err != nil {
			return err
		}
		m, err := message.ParseLink(obj, r)
		if err != nil {
			return err
		}
		switch m.LinkType {
		case message.LinkHard:
			out = append(out, link{name: m.Name, address: m.Address})
		case message.LinkSoft:
			out = append(out, link{name: m.Name, target: m.Target})
		}
		return nil
	})
	return out, err
}

// Attrs returns the group's attributes.
func (g *Group) Attrs() ([]*Attribute, error) {
	return readAttributes(g.file, g.header)
}

// Attr returns the named attribute of the group.
func (g *Group) Attr(name string) (*Attribute, error) {
	return findAttribute(g.file, g.header, name)
}
