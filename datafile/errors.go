package datafile

import "errors"

var (
	// ErrNotPresent is returned when a file has no variable of the given name.
	ErrNotPresent = errors.New("variable not present")

	// ErrWrongType is returned when a variable exists but cannot be read as
	// requested, such as a text or array variable read as a scalar.
	ErrWrongType = errors.New("variable has the wrong type")

	// ErrLayoutConflict is returned when the dump files of a run cannot be
	// told apart or are missing.
	ErrLayoutConflict = errors.New("conflicting dump file layout")

	// ErrUnknownFormat is returned by Open for files that are neither HDF5
	// nor NetCDF classic.
	ErrUnknownFormat = errors.New("unknown file format")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("file is closed")
)
