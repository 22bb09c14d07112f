// Package superblock locates and decodes the HDF5 superblock, the fixed
// structure that tells a reader the field widths of the file and where the
// root group lives.
//
// Versions 0 and 1 describe the root group with a symbol table entry whose
// scratch pad caches the group's B-tree and local heap. Versions 2 and 3
// point straight at the root object header and carry a lookup3 checksum.
package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-boutdata/internal/binary"
)

// Signature opens every HDF5 superblock.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// searchOffsets are the places a superblock may sit; anything before it is a user block.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock")
)

// Superblock holds what the rest of the reader needs from the file header.
type Superblock struct {
	Version    uint8
	OffsetSize uint8
	LengthSize uint8

	// FileOffset is where the signature was found.
	FileOffset int64

	BaseAddress uint64
	EOFAddress  uint64

	// RootGroupAddress is the object header address of "/".
	RootGroupAddress uint64

	// Symbol table cache from the v0/v1 root entry. Zero when absent.
	RootBTreeAddress    uint64
	RootLocalHeapAddress uint64
}

// Read finds the signature and decodes the superblock that follows it.
func Read(src io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature)+1)
	for _, off := range searchOffsets {
		if _, err := src.ReadAt(sig, off); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:len(Signature)], Signature) {
			continue
		}

		r := binpkg.NewReader(src, binpkg.DefaultConfig()).At(off + int64(len(sig)))
		var (
			sb  *Superblock
			err error
		)
		switch version := sig[len(Signature)]; version {
		case 0, 1:
			sb, err = readV0(r, version)
		case 2, 3:
			sb, err = readV2(r, off, version)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
		}
		if err != nil {
			return nil, err
		}
		sb.FileOffset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// ReaderConfig returns the field layout for readers over this file.
func (sb *Superblock) ReaderConfig() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// readV0 decodes versions 0 and 1. r sits just past the version byte.
//
//	free-space version, root entry version, reserved, shared header version,
//	offset size, length size, reserved, leaf K(2), internal K(2), flags(4),
//	[v1: indexed storage K(2), reserved(2)],
//	base, free-space info, EOF, driver info, root symbol table entry
func readV0(r *binpkg.Reader, version uint8) (*Superblock, error) {
	head, err := r.ReadBytes(15)
	if err != nil {
		return nil, err
	}
	sb := &Superblock{Version: version, OffsetSize: head[4], LengthSize: head[5]}
	if version == 1 {
		r.Skip(4)
	}
	r = r.WithSizes(int(sb.OffsetSize), int(sb.LengthSize))
	if err := r.Config().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuperblock, err)
	}

	if sb.BaseAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	r.Skip(int64(sb.OffsetSize))
	if sb.EOFAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	r.Skip(int64(sb.OffsetSize))

	// Root symbol table entry: name offset, header address, cache type,
	// reserved, 16-byte scratch pad.
	r.Skip(int64(sb.OffsetSize))
	if sb.RootGroupAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	cacheType, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	r.Skip(4)
	if cacheType == 1 {
		if sb.RootBTreeAddress, err = r.ReadOffset(); err != nil {
			return nil, err
		}
		if sb.RootLocalHeapAddress, err = r.ReadOffset(); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

// readV2 decodes versions 2 and 3:
//
//	offset size, length size, flags, base, extension, EOF, root header, checksum
func readV2(r *binpkg.Reader, start int64, version uint8) (*Superblock, error) {
	head, err := r.ReadBytes(3)
	if err != nil {
		return nil, err
	}
	sb := &Superblock{Version: version, OffsetSize: head[0], LengthSize: head[1]}
	r = r.WithSizes(int(sb.OffsetSize), int(sb.LengthSize))
	if err := r.Config().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuperblock, err)
	}

	if sb.BaseAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	r.Skip(int64(sb.OffsetSize))
	if sb.EOFAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}
	if sb.RootGroupAddress, err = r.ReadOffset(); err != nil {
		return nil, err
	}

	end := r.Pos()
	sum, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	body, err := r.At(start).ReadBytes(int(end - start))
	if err != nil {
		return nil, err
	}
	if !binpkg.VerifyLookup3(body, sum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidSuperblock)
	}
	return sb, nil
}
