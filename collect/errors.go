package collect

import (
	"errors"

	"github.com/robert-malhotra/go-boutdata/datafile"
)

var (
	// ErrNotFound is returned when a variable is absent and no other name
	// resolves to it.
	ErrNotFound = errors.New("variable not found")

	// ErrAmbiguous is returned when a name resolves to several variables.
	ErrAmbiguous = errors.New("ambiguous variable name")

	// ErrOutOfRange is returned for a single index outside [-n, n).
	ErrOutOfRange = errors.New("index out of range")

	// ErrMalformedRange is returned for ranges of the wrong arity, bounds
	// in the wrong order or a step that is not positive.
	ErrMalformedRange = errors.New("malformed range")

	// ErrLayoutConflict is returned when the dump files cannot be found or
	// their layout is ambiguous.
	ErrLayoutConflict = datafile.ErrLayoutConflict

	// ErrDimensionality is returned for variables with more than four
	// dimensions or a time dimension that is not the first.
	ErrDimensionality = errors.New("unsupported dimensions")

	// ErrInconsistentFieldPerp is returned when the files of a run disagree
	// about which y-plane a FieldPerp lives on.
	ErrInconsistentFieldPerp = errors.New("inconsistent FieldPerp")

	// ErrTopology is returned when the process grid cannot hold the
	// requested boundary cells.
	ErrTopology = errors.New("inconsistent topology")

	// ErrNoData is returned when an axis has no points.
	ErrNoData = errors.New("no data available")

	// ErrMissingScalar is returned when a mandatory header scalar is absent.
	ErrMissingScalar = errors.New("missing header scalar")
)
