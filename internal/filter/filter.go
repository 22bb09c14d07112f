// Package filter decodes chunks written through an HDF5 filter pipeline.
//
// Deflate, shuffle and Fletcher-32 are the filters HDF5 ships with. LZ4 and
// Zstandard are the registered plugin filters most often found in
// simulation output.
package filter

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-boutdata/internal/message"
)

// Registered filter identifiers.
const (
	IDDeflate    uint16 = 1
	IDShuffle    uint16 = 2
	IDFletcher32 uint16 = 3
	IDLZ4        uint16 = 32004
	IDZstd       uint16 = 32015
)

var (
	ErrUnsupported = errors.New("unsupported filter")
	ErrChecksum    = errors.New("filter checksum mismatch")
)

// Filter reverses one pipeline stage.
type Filter interface {
	ID() uint16
	Decode(input []byte) ([]byte, error)
}

type constructor func(info message.FilterInfo, elemSize int) Filter

var registry = map[uint16]constructor{
	IDDeflate:    func(message.FilterInfo, int) Filter { return deflate{} },
	IDShuffle:    newShuffle,
	IDFletcher32: func(message.FilterInfo, int) Filter { return fletcher32{} },
	IDLZ4:        func(message.FilterInfo, int) Filter { return lz4Filter{} },
	IDZstd:       func(message.FilterInfo, int) Filter { return zstdFilter{} },
}

// New returns the decoder for one pipeline entry. elemSize is the dataset's
// element size, which shuffle falls back to when its client data is absent.
func New(info message.FilterInfo, elemSize int) (Filter, error) {
	ctor, ok := registry[info.ID]
	if !ok {
		name := info.Name
		if name == "" {
			name = "unnamed"
		}
		return nil, fmt.Errorf("%w: %d (%s)", ErrUnsupported, info.ID, name)
	}
	return ctor(info, elemSize), nil
}
