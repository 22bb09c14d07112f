// Package hdf5 reads HDF5 files, including the NetCDF-4 flavour written by
// simulation codes, without cgo.
//
// The package is read-only. It resolves groups stored as symbol tables or as
// link messages (compact or dense), reads hyperslabs from compact, contiguous
// and chunked datasets, and decodes attributes.
package hdf5

import "errors"

// Common errors
var (
	ErrNotHDF5     = errors.New("not an HDF5 file")
	ErrNotFound    = errors.New("object not found")
	ErrNotDataset  = errors.New("object is not a dataset")
	ErrNotGroup    = errors.New("object is not a group")
	ErrUnsupported = errors.New("unsupported feature")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("file is closed")
	ErrLinkDepth   = errors.New("maximum link depth exceeded")
)

// MaxLinkDepth is the default limit on soft links followed while resolving
// one path.
const MaxLinkDepth = 100
