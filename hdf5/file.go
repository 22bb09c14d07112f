package hdf5

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/robert-malhotra/go-boutdata/internal/binary"
	"github.com/robert-malhotra/go-boutdata/internal/heap"
	"github.com/robert-malhotra/go-boutdata/internal/object"
	"github.com/robert-malhotra/go-boutdata/internal/superblock"
)

// File represents an open HDF5 file.
type File struct {
	path       string
	closer     io.Closer
	reader     *binary.Reader
	superblock *superblock.Superblock
	opts       *openOptions
	root       *Group
	closed     bool

	mu    sync.Mutex
	heaps *heap.GlobalHeaps
	// names maps object header addresses in the root group to link names.
	names map[uint64]string
}

// Open opens an HDF5 file for reading.
func Open(path string, opts ...OpenOption) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	hf, err := newFile(path, f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	hf.closer = f
	return hf, nil
}

// OpenReaderAt reads an HDF5 image from src. Close does not close src.
func OpenReaderAt(src io.ReaderAt, opts ...OpenOption) (*File, error) {
	return newFile("", src, opts)
}

func newFile(path string, src io.ReaderAt, opts []OpenOption) (*File, error) {
	o := defaultOpenOptions()
	for _, opt := range opts {
		opt(o)
	}

	sb, err := superblock.Read(src)
	if err != nil {
		if errors.Is(err, superblock.ErrNotHDF5) {
			return nil, fmt.Errorf("%w: %s", ErrNotHDF5, path)
		}
		return nil, fmt.Errorf("reading superblock: %w", err)
	}

	// Addresses are relative to the base address, which moves when a user
	// block precedes the superblock.
	if base := int64(sb.BaseAddress); base > 0 {
		src = io.NewSectionReader(src, base, math.MaxInt64-base)
	}

	hf := &File{
		path:       path,
		reader:     binary.NewReader(src, sb.ReaderConfig()),
		superblock: sb,
		opts:       o,
	}
	hf.heaps = heap.NewGlobalHeaps(hf.reader)

	root, err := hf.openGroupAt(sb.RootGroupAddress, "/")
	if err != nil {
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	hf.root = root
	return hf, nil
}

// Close releases the underlying file.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Path returns the path the file was opened from.
func (f *File) Path() string { return f.path }

// Version returns the superblock version.
func (f *File) Version() int { return int(f.superblock.Version) }

// Root returns the root group.
func (f *File) Root() *Group { return f.root }

// OpenGroup opens the group at an absolute or root-relative path.
func (f *File) OpenGroup(path string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenGroup(path)
}

// OpenDataset opens the dataset at an absolute or root-relative path.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	return f.root.OpenDataset(path)
}

func (f *File) openGroupAt(addr uint64, path string) (*Group, error) {
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, err
	}
	if !h.IsGroup() && path != "/" {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, path)
	}
	return &Group{file: f, path: path, header: h}, nil
}

func (f *File) openDatasetAt(addr uint64, path string) (*Dataset, error) {
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, err
	}
	if !h.IsDataset() {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, path)
	}
	return newDataset(f, path, h)
}

// open reads the header at addr and wraps it as a group or dataset.
func (f *File) open(addr uint64, path string) (any, error) {
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, err
	}
	if h.IsDataset() {
		return newDataset(f, path, h)
	}
	return &Group{file: f, path: path, header: h}, nil
}

// nameOf returns the root group link that points at addr.
func (f *File) nameOf(addr uint64) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.names == nil {
		links, err := f.root.links()
		if err != nil {
			return "", false, err
		}
		f.names = make(map[uint64]string, len(links))
		for _, l := range links {
			if l.target == "" {
				f.names[l.address] = l.name
			}
		}
	}
	name, ok := f.names[addr]
	return name, ok, nil
}

// globalObject fetches a global heap object under the file lock.
func (f *File) globalObject(id heap.GlobalHeapID) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heaps.Object(id)
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" && s != "." {
			parts = append(parts, s)
		}
	}
	return parts
}
