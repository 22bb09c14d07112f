package collect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/robert-malhotra/go-boutdata/datafile"
)

type rangeKind int

const (
	kindFull rangeKind = iota
	kindSingle
	kindBounded
	kindStepped
	kindCanonical
	kindMalformed
)

// Range selects indices along one axis. The zero value selects the whole
// axis.
type Range struct {
	kind      rangeKind
	start     int
	stop      int
	step      int
	canonical datafile.Slice
	arity     int
}

// Full selects the whole axis.
func Full() Range { return Range{} }

// Single selects one index. Negative indices count from the end.
func Single(i int) Range { return Range{kind: kindSingle, start: i} }

// Bounded selects the inclusive range [a, b]. Negative bounds count from
// the end, so Bounded(0, -1) selects everything.
func Bounded(a, b int) Range { return Range{kind: kindBounded, start: a, stop: b} }

// Stepped selects every step-th index of the half-open range [a, b).
// Negative bounds count from the end.
func Stepped(a, b, step int) Range {
	return Range{kind: kindStepped, start: a, stop: b, step: step}
}

// Canonical uses s as it is, clamped to the axis.
func Canonical(s datafile.Slice) Range { return Range{kind: kindCanonical, canonical: s} }

// Seq builds a range from a list of up to three integers: none selects
// everything, one is Single, two is Bounded and three is Stepped.
func Seq(v ...int) Range {
	switch len(v) {
	case 0:
		return Full()
	case 1:
		return Single(v[0])
	case 2:
		return Bounded(v[0], v[1])
	case 3:
		return Stepped(v[0], v[1], v[2])
	}
	return Range{kind: kindMalformed, arity: len(v)}
}

// ParseRange reads the command line form of a range: "" or ":" for
// everything, "i" for one index, "a:b" for the inclusive range and
// "a:b:s" for a stepped half-open range.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == ":" {
		return Full(), nil
	}
	parts := strings.Split(s, ":")
	v := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrMalformedRange, s)
		}
		v[i] = n
	}
	return Seq(v...), nil
}

func (r Range) String() string {
	switch r.kind {
	case kindFull:
		return "all"
	case kindSingle:
		return strconv.Itoa(r.start)
	case kindBounded:
		return fmt.Sprintf("[%d, %d]", r.start, r.stop)
	case kindStepped:
		return fmt.Sprintf("%d:%d:%d", r.start, r.stop, r.step)
	case kindCanonical:
		return r.canonical.String()
	}
	return fmt.Sprintf("sequence of %d", r.arity)
}

// Normalize resolves r against an axis of n points into a slice with
// 0 <= Start <= Stop <= n and a positive Step. Out of range bounds are
// clamped the way a Python slice is. axis names the axis in errors.
func Normalize(r Range, n int, axis string) (datafile.Slice, error) {
	if n == 0 {
		return datafile.Slice{}, fmt.Errorf("%w in %s", ErrNoData, axis)
	}
	switch r.kind {
	case kindFull:
		return datafile.Slice{Start: 0, Stop: n, Step: 1}, nil
	case kindSingle:
		i := r.start
		if i >= n || i < -n {
			return datafile.Slice{}, fmt.Errorf("%w: %s index out of range, value was %d", ErrOutOfRange, axis, i)
		}
		if i == -1 {
			return datafile.Slice{Start: n - 1, Stop: n, Step: 1}, nil
		}
		return indices(i, i+1, 1, n), nil
	case kindBounded:
		a, b := r.start, r.stop
		if a < 0 {
			a += n
		}
		if b < 0 {
			b += n
		}
		if a > b {
			return datafile.Slice{}, fmt.Errorf("%w: %s start (%d) is larger than end (%d)", ErrMalformedRange, axis, a, b)
		}
		return indices(a, b+1, 1, n), nil
	case kindStepped:
		if r.step <= 0 {
			return datafile.Slice{}, fmt.Errorf("%w: %s step %d", ErrMalformedRange, axis, r.step)
		}
		return indices(r.start, r.stop, r.step, n), nil
	case kindCanonical:
		s := r.canonical
		if s.Step <= 0 {
			return datafile.Slice{}, fmt.Errorf("%w: %s step %d", ErrMalformedRange, axis, s.Step)
		}
		return indices(s.Start, s.Stop, s.Step, n), nil
	}
	return datafile.Slice{}, fmt.Errorf("%w: couldn't convert %s to a range for %s", ErrMalformedRange, r, axis)
}

// indices clamps a positive-step slice to an axis of n points. Negative
// bounds count from the end; an empty selection has Start == Stop.
func indices(start, stop, step, n int) datafile.Slice {
	clamp := func(v int) int {
		if v < 0 {
			v += n
			if v < 0 {
				v = 0
			}
		}
		return min(v, n)
	}
	start, stop = clamp(start), clamp(stop)
	if stop < start {
		stop = start
	}
	return datafile.Slice{Start: start, Stop: stop, Step: step}
}
